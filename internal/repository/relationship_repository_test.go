package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipRepositoryAttachIsIdempotentInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRelationshipRepository(db)

	query := regexp.QuoteMeta("INSERT INTO district_waste_requests (district_id, waste_request_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT (district_id, waste_request_id) DO NOTHING")
	mock.ExpectExec(query).WithArgs("d1", "wr1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("d1", "wr1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AttachDistrictRequest(context.Background(), "d1", "wr1"))
	require.NoError(t, repo.AttachDistrictRequest(context.Background(), "d1", "wr1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationshipRepositoryDetachAbsentIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRelationshipRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM driver_waste_requests WHERE driver_id = $1 AND waste_request_id = $2")).
		WithArgs("dr1", "wr1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DetachDriverRequest(context.Background(), "dr1", "wr1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationshipRepositoryDistrictDriverIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRelationshipRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT driver_id FROM district_drivers WHERE district_id = $1")).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"driver_id"}).AddRow("dr1").AddRow("dr2"))

	ids, err := repo.DistrictDriverIDs(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dr1", "dr2"}, ids)
}
