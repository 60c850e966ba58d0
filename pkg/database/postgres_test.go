package database

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waste-mgmt-api/pkg/config"
)

func TestDSNQuotesAwkwardValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "waste",
		Password: `p@ss word's\x`,
		Name:     "waste_mgmt",
	})

	assert.Equal(t, `host=db.internal port=5432 user=waste password='p@ss word\'s\\x' dbname=waste_mgmt sslmode=disable`, dsn)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("guard failed")
	err = WithTx(context.Background(), db, func(tx *sqlx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommits(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, WithTx(context.Background(), db, func(tx *sqlx.Tx) error { return nil }))
	assert.NoError(t, mock.ExpectationsWereMet())
}
