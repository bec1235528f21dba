package service

import (
	"context"
	"fmt"
	"strings"

	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/logger"
	"turfmania-backend/internal/repository"
)

const (
	approvalSubject  = "Organization Request Approved - TurfMania"
	rejectionSubject = "Organization Request Rejected - TurfMania"
)

// Notifier composes and dispatches status-change messages. The requester and
// the designated owner get independently templated messages; delivery
// failures are logged and swallowed so a committed transition never fails on
// a messaging problem.
type Notifier struct {
	userRepo     repository.UserRepository
	email        EmailSender
	supportEmail string
}

func NewNotifier(userRepo repository.UserRepository, email EmailSender, supportEmail string) *Notifier {
	return &Notifier{
		userRepo:     userRepo,
		email:        email,
		supportEmail: supportEmail,
	}
}

func (n *Notifier) NotifyOutcome(ctx context.Context, req *domain.OrganizationRequest, approved, wasEdited bool) {
	user, err := n.userRepo.GetByID(ctx, req.RequesterID)
	if err != nil {
		logger.Error("Failed to resolve requester for notification", "requester_id", req.RequesterID, "error", err)
		return
	}
	if user == nil {
		logger.Error("Requester not found for notification", "requester_id", req.RequesterID)
		return
	}

	isOwner := strings.EqualFold(user.Email, req.OwnerEmail)

	subject := rejectionSubject
	if approved {
		subject = approvalSubject
	}

	message := n.buildRequesterMessage(user, req, approved, wasEdited, isOwner)
	n.send(ctx, user.Email, user.Name, subject, message)

	if !isOwner {
		ownerMessage := n.buildOwnerMessage(req, approved, wasEdited)
		n.send(ctx, req.OwnerEmail, ownerName(req.OwnerEmail), subject, ownerMessage)
	}
}

func (n *Notifier) send(ctx context.Context, toEmail, toName, subject, body string) {
	if err := n.email.Send(ctx, toEmail, toName, subject, body); err != nil {
		logger.Error("Failed to send notification email", "to", toEmail, "subject", subject, "error", err)
		return
	}
	logger.Debug("Notification email sent", "to", toEmail, "subject", subject)
}

func (n *Notifier) buildRequesterMessage(user *domain.User, req *domain.OrganizationRequest, approved, wasEdited, isOwner bool) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Dear %s,\n\n", recipientName(user, isOwner)))

	if approved {
		b.WriteString(fmt.Sprintf("We are pleased to inform you that your request to create organization %q has been approved%s.\n\n",
			req.OrganizationName, changesSuffix(wasEdited)))
		b.WriteString("The organization has been successfully created in our system and is now active.\n")
		if req.OrganizationID != nil {
			b.WriteString(fmt.Sprintf("Organization ID: %d\n\n", *req.OrganizationID))
		} else {
			b.WriteString("\n")
		}
		if wasEdited {
			b.WriteString("Please note that some details of your request were modified during the approval process. You can view the final organization details in your dashboard.\n\n")
		}
		if isOwner {
			b.WriteString(fmt.Sprintf("As the owner of %q, you now have full administrative access to manage the organization.\n\n", req.OrganizationName))
		}
	} else {
		b.WriteString(fmt.Sprintf("We regret to inform you that your request to create organization %q has been rejected.\n\n", req.OrganizationName))
		if req.AdminNotes != "" {
			b.WriteString(fmt.Sprintf("Reason: %s\n\n", req.AdminNotes))
			b.WriteString("You may submit a new request after addressing the issues mentioned above.\n\n")
		}
	}

	b.WriteString(n.footer())
	return b.String()
}

// buildOwnerMessage is its own template rather than a truncation of the
// requester message, so the two can evolve independently.
func (n *Notifier) buildOwnerMessage(req *domain.OrganizationRequest, approved, wasEdited bool) string {
	var statusText string
	switch {
	case approved && wasEdited:
		statusText = "approved with some modifications"
	case approved:
		statusText = "approved"
	default:
		statusText = "rejected"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Dear %s,\n\n", ownerName(req.OwnerEmail)))
	b.WriteString(fmt.Sprintf("You had been designated as the owner of organization %q which was just %s on TurfMania.\n\n",
		req.OrganizationName, statusText))
	if approved {
		if req.OrganizationID != nil {
			b.WriteString(fmt.Sprintf("Organization ID: %d\n\n", *req.OrganizationID))
		}
		b.WriteString("As the owner, you have full administrative access to manage the organization.\n\n")
	} else if req.AdminNotes != "" {
		b.WriteString(fmt.Sprintf("Reason: %s\n\n", req.AdminNotes))
	}
	b.WriteString(n.footer())
	return b.String()
}

func (n *Notifier) footer() string {
	return fmt.Sprintf("If you have any questions or need further assistance, please don't hesitate to contact our support team at %s.\n\n", n.supportEmail) +
		"Thank you for choosing TurfMania!\n\n" +
		"Best regards,\n" +
		"The TurfMania Team\n\n" +
		"[This is an automated message. Please do not reply directly to this email.]"
}

func changesSuffix(wasEdited bool) string {
	if wasEdited {
		return " with some changes"
	}
	return ""
}

func recipientName(user *domain.User, isOwner bool) string {
	if user.Name != "" {
		return user.Name
	}
	if isOwner {
		return "Owner"
	}
	return "Valued Customer"
}

func ownerName(ownerEmail string) string {
	if idx := strings.Index(ownerEmail, "@"); idx > 0 {
		return ownerEmail[:idx]
	}
	return "Owner"
}
