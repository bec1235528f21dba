package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewFacilityRepository(db)

	mock.ExpectQuery("SELECT id FROM facilities WHERE id = ANY\\(\\$1\\)").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int32(1)).AddRow(int32(3)))

	missing, err := repo.MissingIDs(context.Background(), []int32{1, 2, 3, 4})

	require.NoError(t, err)
	assert.Equal(t, []int32{2, 4}, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingIDsEmptyInput(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewFacilityRepository(db)

	missing, err := repo.MissingIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, missing)
}
