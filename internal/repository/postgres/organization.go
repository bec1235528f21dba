package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/repository"

	"github.com/lib/pq"
)

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) CreateTx(ctx context.Context, tx *sql.Tx, org *domain.Organization) error {
	query := `INSERT INTO organizations
	          (name, facilities, place_id, address, longitude, latitude, area, sub_area, city, post_code,
	           org_contact_phone, org_contact_email, owner_id, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING id`
	now := time.Now()
	args := []any{
		org.Name, pq.Array(org.Facilities),
		org.Location.PlaceID, org.Location.Address,
		org.Location.Coordinates.Longitude, org.Location.Coordinates.Latitude,
		org.Location.Area, org.Location.SubArea, org.Location.City, org.Location.PostCode,
		org.OrgContactPhone, org.OrgContactEmail, org.OwnerID,
		now, now,
	}
	if tx != nil {
		return tx.QueryRowContext(ctx, query, args...).Scan(&org.ID)
	}
	return r.db.QueryRowContext(ctx, query, args...).Scan(&org.ID)
}

func (r *organizationRepository) GetByID(ctx context.Context, id int32) (*domain.Organization, error) {
	org := &domain.Organization{}
	var facilities pq.Int32Array
	query := `SELECT id, name, facilities, place_id, address, longitude, latitude,
	          COALESCE(area, ''), COALESCE(sub_area, ''), city, COALESCE(post_code, ''),
	          org_contact_phone, org_contact_email, owner_id, created_on, updated_on
	          FROM organizations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &facilities,
		&org.Location.PlaceID, &org.Location.Address,
		&org.Location.Coordinates.Longitude, &org.Location.Coordinates.Latitude,
		&org.Location.Area, &org.Location.SubArea, &org.Location.City, &org.Location.PostCode,
		&org.OrgContactPhone, &org.OrgContactEmail, &org.OwnerID,
		&org.CreatedOn, &org.UpdatedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	org.Facilities = []int32(facilities)
	return org, nil
}
