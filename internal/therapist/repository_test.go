package therapist

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func TestGetByCode(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, display_name, timezone, created_at FROM therapists WHERE code = $1")).
		WithArgs("ABC123").
		WillReturnRows(sqlmock.NewRows([]string{"code", "display_name", "timezone", "created_at"}).
			AddRow("ABC123", "Dr. Chen", "America/Los_Angeles", now))

	profile, err := repo.GetByCode(context.Background(), "ABC123")
	require.NoError(t, err)
	require.Equal(t, "ABC123", profile.Code)
	require.Equal(t, "America/Los_Angeles", profile.Timezone)
}

func TestGetByCodeNotFound(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, display_name, timezone, created_at FROM therapists WHERE code = $1")).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"code", "display_name", "timezone", "created_at"}))

	_, err := repo.GetByCode(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrTherapistNotFound)
}
