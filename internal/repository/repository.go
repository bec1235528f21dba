package repository

import (
	"context"
	"database/sql"
	"time"

	"turfmania-backend/internal/domain"
)

// RequestFilter narrows ListRequests. Zero values mean "no filter".
type RequestFilter struct {
	Statuses     []domain.RequestStatus
	FromDate     *time.Time
	ToDate       *time.Time
	RequesterIDs []int32 // resolved from a requester-email fragment by the service
	OwnerEmail   string  // case-insensitive substring match
	SortBy       string  // created_on, updated_on or organization_name
	SortOrder    string  // asc or desc
}

type Pagination struct {
	Page     int32
	PageSize int32
}

type OrganizationRequestRepository interface {
	Create(ctx context.Context, req *domain.OrganizationRequest) error
	GetByID(ctx context.Context, id int32) (*domain.OrganizationRequest, error)
	ExistsByName(ctx context.Context, organizationName string) (bool, error)

	// The Mark/Clear methods are atomic conditional updates: they only touch
	// a row whose current status still permits the transition and report
	// whether a row matched. A false return with a nil error means a
	// concurrent writer got there first (or the guard never held).
	MarkProcessing(ctx context.Context, id, adminID int32, startedAt time.Time) (bool, error)
	ClearProcessing(ctx context.Context, id int32) (bool, error)
	MarkApproved(ctx context.Context, tx *sql.Tx, id int32, status domain.RequestStatus, organizationID int32, adminNotes string) (bool, error)
	MarkRejected(ctx context.Context, id int32, notes string) (bool, error)

	List(ctx context.Context, filter RequestFilter, page Pagination) ([]domain.OrganizationRequest, int32, error)
	ListByRequester(ctx context.Context, requesterID int32) ([]domain.OrganizationRequest, error)

	// ResetStuckProcessing returns every request that has been in processing
	// since before cutoff to pending and reports how many rows it reset.
	ResetStuckProcessing(ctx context.Context, cutoff time.Time) (int64, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FindIDsByEmailFragment(ctx context.Context, fragment string) ([]int32, error)
}

type FacilityRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Facility, error)
	// MissingIDs returns, in input order, the ids that do not resolve to an
	// existing facility.
	MissingIDs(ctx context.Context, ids []int32) ([]int32, error)
}

type OrganizationRepository interface {
	// CreateTx inserts the organization inside the caller's transaction when
	// tx is non-nil.
	CreateTx(ctx context.Context, tx *sql.Tx, org *domain.Organization) error
	GetByID(ctx context.Context, id int32) (*domain.Organization, error)
}
