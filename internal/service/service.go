package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"turfmania-backend/internal/domain"
)

// SubmitRequestInput carries everything a prospective owner supplies when
// asking for a new organization.
type SubmitRequestInput struct {
	OrganizationName string          `json:"organization_name"`
	Facilities       []int32         `json:"facilities"`
	Location         domain.Location `json:"location"`
	ContactPhone     string          `json:"contact_phone"`
	OwnerEmail       string          `json:"owner_email"`
	RequestNotes     string          `json:"request_notes,omitempty"`
	OrgContactPhone  string          `json:"org_contact_phone"`
	OrgContactEmail  string          `json:"org_contact_email"`
}

// ImageUpload is one image attached to a submission.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// OrganizationData is the organization an admin is about to create from a
// request, compared against the original submission to pick the approval
// sub-state.
type OrganizationData struct {
	Name            string          `json:"name"`
	Facilities      []int32         `json:"facilities"`
	Location        domain.Location `json:"location"`
	OrgContactPhone string          `json:"org_contact_phone"`
	OrgContactEmail string          `json:"org_contact_email"`
}

// RequestFilters narrows ListRequests. Email filters are case-insensitive
// substring matches.
type RequestFilters struct {
	Status         []domain.RequestStatus
	FromDate       *time.Time
	ToDate         *time.Time
	RequesterEmail string
	OwnerEmail     string
	SortBy         string // created_on, updated_on or organization_name
	SortOrder      string // asc or desc
}

// RequestsResult is one page of requests plus pagination totals.
type RequestsResult struct {
	Total    int32                        `json:"total"`
	Page     int32                        `json:"page"`
	Pages    int32                        `json:"pages"`
	Requests []domain.OrganizationRequest `json:"requests"`
}

type OrganizationRequestService interface {
	SubmitRequest(ctx context.Context, requesterID int32, input SubmitRequestInput, images []ImageUpload) (*domain.OrganizationRequest, error)
	GetRequest(ctx context.Context, requestID int32) (*domain.OrganizationRequest, error)
	StartProcessing(ctx context.Context, requestID, adminID int32) (*domain.OrganizationRequest, error)
	CancelProcessing(ctx context.Context, requestID, adminID int32) (*domain.OrganizationRequest, error)

	// ApproveRequest joins the caller's transaction when tx is non-nil so
	// organization creation and request approval commit or abort together.
	// Notification fires only for the tx-less path; transactional callers
	// notify themselves after commit.
	ApproveRequest(ctx context.Context, tx *sql.Tx, requestID, adminID, organizationID int32, wasEdited bool, adminNotes string) (*domain.OrganizationRequest, error)
	RejectRequest(ctx context.Context, requestID, adminID int32, notes string) (*domain.OrganizationRequest, error)

	ListRequests(ctx context.Context, filters RequestFilters, page, pageSize int32) (*RequestsResult, error)
	ListUserRequests(ctx context.Context, requesterID int32) ([]domain.OrganizationRequest, error)

	ValidateOwnerEmail(ctx context.Context, email string) (bool, error)
	WasEdited(original *domain.OrganizationRequest, candidate OrganizationData) bool

	// ResetStuckProcessing reclaims requests stuck in processing longer than
	// timeout, returning them to the pending queue.
	ResetStuckProcessing(ctx context.Context, timeout time.Duration) (int64, error)
}

// OutcomeNotifier dispatches status-change messages after a terminal
// transition. Implementations never return delivery failures to the engine.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, request *domain.OrganizationRequest, approved, wasEdited bool)
}

// EmailSender is the messaging gateway contract.
type EmailSender interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}
