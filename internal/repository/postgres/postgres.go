package postgres

import (
	"database/sql"

	"turfmania-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.OrganizationRequestRepository
	repository.UserRepository
	repository.FacilityRepository
	repository.OrganizationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                            db,
		OrganizationRequestRepository: NewOrganizationRequestRepository(db),
		UserRepository:                NewUserRepository(db),
		FacilityRepository:            NewFacilityRepository(db),
		OrganizationRepository:        NewOrganizationRepository(db),
	}
}

// DB exposes the underlying handle so callers can open transactions that
// span organization creation and request approval.
func (s *Store) DB() *sql.DB { return s.db }
