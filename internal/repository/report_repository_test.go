package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

func TestReportRepositoryWasteRequestsResolvesReferences(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	pickUp := time.Now()
	rows := sqlmock.NewRows([]string{"id", "category_name", "district_name", "city", "requester_name", "driver_name", "pick_up_date", "quantity", "estimated_price", "request_status", "truck_driver_status", "collection_status", "payment_status"}).
		AddRow("wr1", "Plastic", "Colombo", "A", "Jane", nil, pickUp, 10.0, 25.0, "PENDING", "PENDING", "PENDING", "PENDING")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE wr.district_id = $1 AND wr.request_status = $2 ORDER BY wr.pick_up_date ASC LIMIT 5000")).
		WithArgs("d1", "ACCEPTED").
		WillReturnRows(rows)

	result, err := repo.WasteRequests(context.Background(), models.ReportFilter{DistrictID: "d1", Status: "accepted"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Plastic", result[0].CategoryName)
	assert.Nil(t, result[0].DriverName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryDistrictsDefaultsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM districts d ORDER BY d.name ASC LIMIT 5000")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "district_code", "active", "drivers", "requests", "total_quantity", "total_amount"}).
			AddRow("d1", "Colombo", "CMB", true, 2, 3, 30.0, 75.0))

	result, err := repo.Districts(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 2, result[0].Drivers)
	assert.Equal(t, 75.0, result[0].TotalAmount)
}
