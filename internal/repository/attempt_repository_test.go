package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-checkout/internal/checkout"
)

func newMock(t *testing.T) (*AttemptRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAttemptRepo(db), mock
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS checkout_attempts")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_attempts")).
		WithArgs("a-1", "u1", "507f1f77bcf86cd799439011", "A1,A2", "momo",
			decimal.NewFromInt(200000), "redirecting_to_provider", "bk-1", nil, at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Record(context.Background(), checkout.Attempt{
		ID:         "a-1",
		UserID:     "u1",
		ShowtimeID: "507f1f77bcf86cd799439011",
		Seats:      []string{"A1", "A2"},
		Method:     checkout.MethodMomo,
		Total:      decimal.NewFromInt(200000),
		State:      checkout.RedirectingToProvider,
		BookingID:  "bk-1",
		CreatedAt:  at,
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDuplicate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_attempts")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Record(context.Background(), checkout.Attempt{ID: "a-1"})

	assert.ErrorIs(t, err, ErrConflict)
}

func TestListByUser(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "showtime_id", "seats", "method", "total_price", "state", "booking_id", "error", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM checkout_attempts WHERE user_id = ?")).
		WithArgs("u1", 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a-2", "u1", "s1", "B3", "momo", "100000.00", "booking_failed", nil, "seat taken", at).
			AddRow("a-1", "u1", "s1", "A1,A2", "momo", "200000.00", "redirecting_to_provider", "bk-1", nil, at.Add(-time.Hour)))

	recs, err := repo.ListByUser(context.Background(), "u1", 0)

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"B3"}, recs[0].Seats)
	assert.Nil(t, recs[0].BookingID)
	require.NotNil(t, recs[0].Error)
	assert.Equal(t, "seat taken", *recs[0].Error)
	assert.True(t, recs[1].TotalPrice.Equal(decimal.NewFromInt(200000)))
	require.NotNil(t, recs[1].BookingID)
	assert.Equal(t, "bk-1", *recs[1].BookingID)
	assert.Equal(t, []string{"A1", "A2"}, recs[1].Seats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeBefore(t *testing.T) {
	repo, mock := newMock(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM checkout_attempts WHERE created_at < ?")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.PurgeBefore(context.Background(), cutoff)

	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", 511) + "ế lỗi thanh toán"

	out := truncate(msg, 512)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("a", 511), out)
	assert.Equal(t, "ok", truncate("ok", 512))
	assert.Equal(t, "ế", truncate("ếx", 3))
}

func TestRecordTruncatesLongErrorOnRuneBoundary(t *testing.T) {
	repo, mock := newMock(t)
	long := strings.Repeat("a", 511) + "ế"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO checkout_attempts")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), strings.Repeat("a", 511), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Record(context.Background(), checkout.Attempt{ID: "a-2", Error: long}))
	require.NoError(t, mock.ExpectationsWereMet())
}
