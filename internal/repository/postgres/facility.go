package postgres

import (
	"context"
	"database/sql"
	"errors"

	"turfmania-backend/internal/domain"
	"turfmania-backend/internal/repository"

	"github.com/lib/pq"
)

type facilityRepository struct {
	db *sql.DB
}

func NewFacilityRepository(db *sql.DB) repository.FacilityRepository {
	return &facilityRepository{db: db}
}

func (r *facilityRepository) GetByID(ctx context.Context, id int32) (*domain.Facility, error) {
	f := &domain.Facility{}
	query := `SELECT id, name FROM facilities WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *facilityRepository) MissingIDs(ctx context.Context, ids []int32) ([]int32, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM facilities WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int32]bool, len(ids))
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int32
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
