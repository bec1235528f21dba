package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/repository"

	"github.com/lib/pq"
)

const requestColumns = `id, organization_name, facilities, place_id, address, longitude, latitude,
	COALESCE(area, ''), COALESCE(sub_area, ''), city, COALESCE(post_code, ''),
	contact_phone, owner_email, org_contact_phone, org_contact_email,
	requester_id, status, processing_admin_id, processing_started_at,
	organization_id, COALESCE(admin_notes, ''), COALESCE(request_notes, ''),
	images, created_on, updated_on`

type organizationRequestRepository struct {
	db *sql.DB
}

func NewOrganizationRequestRepository(db *sql.DB) repository.OrganizationRequestRepository {
	return &organizationRequestRepository{db: db}
}

func (r *organizationRequestRepository) Create(ctx context.Context, req *domain.OrganizationRequest) error {
	query := `INSERT INTO organization_requests
	          (organization_name, facilities, place_id, address, longitude, latitude, area, sub_area, city, post_code,
	           contact_phone, owner_email, org_contact_phone, org_contact_email,
	           requester_id, status, request_notes, images, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	          RETURNING id, created_on, updated_on`
	now := time.Now()
	return r.db.QueryRowContext(ctx, query,
		req.OrganizationName, pq.Array(req.Facilities),
		req.Location.PlaceID, req.Location.Address,
		req.Location.Coordinates.Longitude, req.Location.Coordinates.Latitude,
		req.Location.Area, req.Location.SubArea, req.Location.City, req.Location.PostCode,
		req.ContactPhone, req.OwnerEmail, req.OrgContactPhone, req.OrgContactEmail,
		req.RequesterID, req.Status, req.RequestNotes, pq.Array(req.Images),
		now, now,
	).Scan(&req.ID, &req.CreatedOn, &req.UpdatedOn)
}

func scanRequest(row interface{ Scan(dest ...any) error }) (*domain.OrganizationRequest, error) {
	req := &domain.OrganizationRequest{}
	var facilities pq.Int32Array
	var images pq.StringArray
	err := row.Scan(
		&req.ID, &req.OrganizationName, &facilities,
		&req.Location.PlaceID, &req.Location.Address,
		&req.Location.Coordinates.Longitude, &req.Location.Coordinates.Latitude,
		&req.Location.Area, &req.Location.SubArea, &req.Location.City, &req.Location.PostCode,
		&req.ContactPhone, &req.OwnerEmail, &req.OrgContactPhone, &req.OrgContactEmail,
		&req.RequesterID, &req.Status, &req.ProcessingAdminID, &req.ProcessingStartedAt,
		&req.OrganizationID, &req.AdminNotes, &req.RequestNotes,
		&images, &req.CreatedOn, &req.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	req.Facilities = []int32(facilities)
	req.Images = []string(images)
	return req, nil
}

func (r *organizationRequestRepository) GetByID(ctx context.Context, id int32) (*domain.OrganizationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM organization_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (r *organizationRequestRepository) ExistsByName(ctx context.Context, organizationName string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM organization_requests WHERE LOWER(organization_name) = LOWER($1))`
	err := r.db.QueryRowContext(ctx, query, organizationName).Scan(&exists)
	return exists, err
}

func (r *organizationRequestRepository) MarkProcessing(ctx context.Context, id, adminID int32, startedAt time.Time) (bool, error) {
	query := `UPDATE organization_requests
	          SET status = $1, processing_admin_id = $2, processing_started_at = $3, updated_on = $4
	          WHERE id = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query,
		domain.RequestStatusProcessing, adminID, startedAt, time.Now(),
		id, domain.RequestStatusPending)
	if err != nil {
		return false, err
	}
	return oneRowMatched(res)
}

func (r *organizationRequestRepository) ClearProcessing(ctx context.Context, id int32) (bool, error) {
	query := `UPDATE organization_requests
	          SET status = $1, processing_admin_id = NULL, processing_started_at = NULL, updated_on = $2
	          WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query,
		domain.RequestStatusPending, time.Now(),
		id, domain.RequestStatusProcessing)
	if err != nil {
		return false, err
	}
	return oneRowMatched(res)
}

func (r *organizationRequestRepository) MarkApproved(ctx context.Context, tx *sql.Tx, id int32, status domain.RequestStatus, organizationID int32, adminNotes string) (bool, error) {
	query := `UPDATE organization_requests
	          SET status = $1, organization_id = $2,
	              admin_notes = CASE WHEN $3 <> '' THEN $3 ELSE admin_notes END,
	              processing_admin_id = NULL, processing_started_at = NULL, updated_on = $4
	          WHERE id = $5 AND status = $6`
	args := []any{status, organizationID, adminNotes, time.Now(), id, domain.RequestStatusProcessing}

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, args...)
	} else {
		res, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return false, err
	}
	return oneRowMatched(res)
}

func (r *organizationRequestRepository) MarkRejected(ctx context.Context, id int32, notes string) (bool, error) {
	query := `UPDATE organization_requests
	          SET status = $1, admin_notes = $2,
	              processing_admin_id = NULL, processing_started_at = NULL, updated_on = $3
	          WHERE id = $4 AND status = ANY($5)`
	res, err := r.db.ExecContext(ctx, query,
		domain.RequestStatusRejected, notes, time.Now(),
		id, pq.Array([]domain.RequestStatus{domain.RequestStatusPending, domain.RequestStatusProcessing}))
	if err != nil {
		return false, err
	}
	return oneRowMatched(res)
}

var sortColumns = map[string]string{
	"created_on":        "created_on",
	"updated_on":        "updated_on",
	"organization_name": "organization_name",
}

func (r *organizationRequestRepository) List(ctx context.Context, filter repository.RequestFilter, page repository.Pagination) ([]domain.OrganizationRequest, int32, error) {
	query := `SELECT ` + requestColumns + ` FROM organization_requests WHERE 1=1`
	var args []any
	argIdx := 1

	if len(filter.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", argIdx)
		args = append(args, pq.Array(filter.Statuses))
		argIdx++
	}
	if filter.FromDate != nil {
		query += fmt.Sprintf(" AND created_on >= $%d", argIdx)
		args = append(args, *filter.FromDate)
		argIdx++
	}
	if filter.ToDate != nil {
		query += fmt.Sprintf(" AND created_on <= $%d", argIdx)
		args = append(args, *filter.ToDate)
		argIdx++
	}
	if filter.RequesterIDs != nil {
		query += fmt.Sprintf(" AND requester_id = ANY($%d)", argIdx)
		args = append(args, pq.Array(filter.RequesterIDs))
		argIdx++
	}
	if filter.OwnerEmail != "" {
		query += fmt.Sprintf(" AND owner_email ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, filter.OwnerEmail)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") AS sub"
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sortBy, ok := sortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_on"
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	offset := (page.Page - 1) * page.PageSize
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortBy, sortOrder, argIdx, argIdx+1)
	args = append(args, page.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []domain.OrganizationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *req)
	}
	return requests, count, rows.Err()
}

func (r *organizationRequestRepository) ListByRequester(ctx context.Context, requesterID int32) ([]domain.OrganizationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM organization_requests WHERE requester_id = $1 ORDER BY created_on DESC`
	rows, err := r.db.QueryContext(ctx, query, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.OrganizationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (r *organizationRequestRepository) ResetStuckProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE organization_requests
	          SET status = $1, processing_admin_id = NULL, processing_started_at = NULL, updated_on = $2
	          WHERE status = $3 AND processing_started_at < $4`
	res, err := r.db.ExecContext(ctx, query,
		domain.RequestStatusPending, time.Now(),
		domain.RequestStatusProcessing, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func oneRowMatched(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
