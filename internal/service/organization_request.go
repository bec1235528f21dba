package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"turfmania-backend/internal/apperr"
	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/logger"
	"turfmania-backend/internal/repository"
	"turfmania-backend/internal/storage"
)

type organizationRequestService struct {
	reqRepo      repository.OrganizationRequestRepository
	userRepo     repository.UserRepository
	facilityRepo repository.FacilityRepository
	assets       storage.AssetStore
	notifier     OutcomeNotifier
}

func NewOrganizationRequestService(
	reqRepo repository.OrganizationRequestRepository,
	userRepo repository.UserRepository,
	facilityRepo repository.FacilityRepository,
	assets storage.AssetStore,
	notifier OutcomeNotifier,
) OrganizationRequestService {
	return &organizationRequestService{
		reqRepo:      reqRepo,
		userRepo:     userRepo,
		facilityRepo: facilityRepo,
		assets:       assets,
		notifier:     notifier,
	}
}

// ValidateOwnerEmail checks that the email is well formed and belongs to an
// existing account. Fails closed: any doubt means false.
func (s *organizationRequestService) ValidateOwnerEmail(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false, nil
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to look up owner email: %w", err)
	}
	return user != nil, nil
}

func (s *organizationRequestService) SubmitRequest(ctx context.Context, requesterID int32, input SubmitRequestInput, images []ImageUpload) (*domain.OrganizationRequest, error) {
	if strings.TrimSpace(input.OrganizationName) == "" {
		return nil, apperr.InvalidInput("organization name is required")
	}

	exists, err := s.reqRepo.ExistsByName(ctx, input.OrganizationName)
	if err != nil {
		return nil, fmt.Errorf("failed to check organization name: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("an organization request with this name already exists")
	}

	ownerExists, err := s.ValidateOwnerEmail(ctx, input.OwnerEmail)
	if err != nil {
		return nil, err
	}
	if !ownerExists {
		return nil, apperr.InvalidInput("owner email does not belong to an existing account")
	}

	missing, err := s.facilityRepo.MissingIDs(ctx, input.Facilities)
	if err != nil {
		return nil, fmt.Errorf("failed to validate facilities: %w", err)
	}
	if len(missing) > 0 {
		return nil, apperr.InvalidInput("facility %d does not exist", missing[0])
	}

	// Upload images before creating the record; a failed upload aborts the
	// submission and already-stored assets are removed again.
	var imageURLs []string
	for _, img := range images {
		url, err := s.assets.Upload(ctx, img.Filename, img.Content)
		if err != nil {
			s.removeAssets(ctx, imageURLs)
			return nil, apperr.Upload("failed to upload request image", err)
		}
		imageURLs = append(imageURLs, url)
	}

	req := &domain.OrganizationRequest{
		OrganizationName: input.OrganizationName,
		Facilities:       input.Facilities,
		Location:         input.Location,
		ContactPhone:     input.ContactPhone,
		OwnerEmail:       input.OwnerEmail,
		OrgContactPhone:  input.OrgContactPhone,
		OrgContactEmail:  input.OrgContactEmail,
		RequesterID:      requesterID,
		RequestNotes:     input.RequestNotes,
		Status:           domain.RequestStatusPending,
		Images:           imageURLs,
	}

	if err := s.reqRepo.Create(ctx, req); err != nil {
		s.removeAssets(ctx, imageURLs)
		return nil, fmt.Errorf("failed to create organization request: %w", err)
	}

	logger.Info("Organization request submitted",
		"request_id", req.ID, "organization_name", req.OrganizationName, "requester_id", requesterID)
	return req, nil
}

func (s *organizationRequestService) removeAssets(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.assets.Delete(ctx, url); err != nil {
			logger.Warn("Failed to remove uploaded asset", "url", url, "error", err)
		}
	}
}

func (s *organizationRequestService) GetRequest(ctx context.Context, requestID int32) (*domain.OrganizationRequest, error) {
	req, err := s.reqRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization request: %w", err)
	}
	if req == nil {
		return nil, apperr.NotFound("organization request %d not found", requestID)
	}
	return req, nil
}

func (s *organizationRequestService) StartProcessing(ctx context.Context, requestID, adminID int32) (*domain.OrganizationRequest, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransition(domain.RequestStatusProcessing) {
		return nil, apperr.InvalidState("request cannot be processed, current status: %s", req.Status)
	}

	startedAt := time.Now()
	ok, err := s.reqRepo.MarkProcessing(ctx, requestID, adminID, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to mark request processing: %w", err)
	}
	if !ok {
		// A concurrent transition won; the request is no longer pending.
		return nil, apperr.InvalidState("request %d is no longer pending", requestID)
	}

	req.Status = domain.RequestStatusProcessing
	req.ProcessingAdminID = &adminID
	req.ProcessingStartedAt = &startedAt

	logger.Info("Organization request claimed for review", "request_id", requestID, "admin_id", adminID)
	return req, nil
}

func (s *organizationRequestService) CancelProcessing(ctx context.Context, requestID, adminID int32) (*domain.OrganizationRequest, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusProcessing {
		return nil, apperr.InvalidState("request is not currently being processed")
	}

	ok, err := s.reqRepo.ClearProcessing(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel processing: %w", err)
	}
	if !ok {
		return nil, apperr.InvalidState("request %d is no longer being processed", requestID)
	}

	req.Status = domain.RequestStatusPending
	req.ProcessingAdminID = nil
	req.ProcessingStartedAt = nil

	logger.Info("Organization request review cancelled", "request_id", requestID, "admin_id", adminID)
	return req, nil
}

func (s *organizationRequestService) ApproveRequest(ctx context.Context, tx *sql.Tx, requestID, adminID, organizationID int32, wasEdited bool, adminNotes string) (*domain.OrganizationRequest, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	target := domain.RequestStatusApproved
	if wasEdited {
		target = domain.RequestStatusApprovedWithChanges
	}
	if !req.Status.CanTransition(target) {
		return nil, apperr.InvalidState("request is not in processing state, current status: %s", req.Status)
	}

	ok, err := s.reqRepo.MarkApproved(ctx, tx, requestID, target, organizationID, adminNotes)
	if err != nil {
		return nil, fmt.Errorf("failed to approve request: %w", err)
	}
	if !ok {
		return nil, apperr.InvalidState("request %d is no longer in processing state", requestID)
	}

	req.Status = target
	req.OrganizationID = &organizationID
	if adminNotes != "" {
		req.AdminNotes = adminNotes
	}
	req.ProcessingAdminID = nil
	req.ProcessingStartedAt = nil

	logger.Info("Organization request approved",
		"request_id", requestID, "admin_id", adminID, "organization_id", organizationID, "with_changes", wasEdited)

	// Inside a caller-owned transaction the approval may still abort, so the
	// caller notifies after commit instead.
	if tx == nil {
		notified := *req
		go s.notifier.NotifyOutcome(context.WithoutCancel(ctx), &notified, true, wasEdited)
	}

	return req, nil
}

func (s *organizationRequestService) RejectRequest(ctx context.Context, requestID, adminID int32, notes string) (*domain.OrganizationRequest, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransition(domain.RequestStatusRejected) {
		return nil, apperr.InvalidState("request cannot be rejected in its current state: %s", req.Status)
	}

	ok, err := s.reqRepo.MarkRejected(ctx, requestID, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to reject request: %w", err)
	}
	if !ok {
		return nil, apperr.InvalidState("request %d can no longer be rejected", requestID)
	}

	req.Status = domain.RequestStatusRejected
	req.AdminNotes = notes
	req.ProcessingAdminID = nil
	req.ProcessingStartedAt = nil

	logger.Info("Organization request rejected", "request_id", requestID, "admin_id", adminID)

	notified := *req
	go s.notifier.NotifyOutcome(context.WithoutCancel(ctx), &notified, false, false)

	return req, nil
}

func (s *organizationRequestService) ListRequests(ctx context.Context, filters RequestFilters, page, pageSize int32) (*RequestsResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	repoFilter := repository.RequestFilter{
		Statuses:   filters.Status,
		FromDate:   filters.FromDate,
		ToDate:     filters.ToDate,
		OwnerEmail: filters.OwnerEmail,
		SortBy:     filters.SortBy,
		SortOrder:  filters.SortOrder,
	}

	if filters.RequesterEmail != "" {
		ids, err := s.userRepo.FindIDsByEmailFragment(ctx, filters.RequesterEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve requester email filter: %w", err)
		}
		if len(ids) == 0 {
			// No account matches the fragment: an empty page, not an error.
			return &RequestsResult{Total: 0, Page: page, Pages: 0, Requests: []domain.OrganizationRequest{}}, nil
		}
		repoFilter.RequesterIDs = ids
	}

	requests, total, err := s.reqRepo.List(ctx, repoFilter, repository.Pagination{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to list organization requests: %w", err)
	}

	pages := (total + pageSize - 1) / pageSize
	if requests == nil {
		requests = []domain.OrganizationRequest{}
	}
	return &RequestsResult{Total: total, Page: page, Pages: pages, Requests: requests}, nil
}

func (s *organizationRequestService) ListUserRequests(ctx context.Context, requesterID int32) ([]domain.OrganizationRequest, error) {
	requests, err := s.reqRepo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user requests: %w", err)
	}
	return requests, nil
}

func (s *organizationRequestService) ResetStuckProcessing(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	count, err := s.reqRepo.ResetStuckProcessing(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck requests: %w", err)
	}
	return count, nil
}
