package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-checkout/internal/checkout"
)

const mysqlDuplicateEntry = 1062

// AttemptRepo stores one row per pressed pay button.
type AttemptRepo struct {
	db *sql.DB
}

// NewAttemptRepo returns a new AttemptRepo bound to the given database.
func NewAttemptRepo(db *sql.DB) *AttemptRepo { return &AttemptRepo{db: db} }

// AttemptRecord mirrors the checkout_attempts table.
type AttemptRecord struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	ShowtimeID string          `json:"showtimeId"`
	Seats      []string        `json:"seats"`
	Method     string          `json:"method"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	State      string          `json:"state"`
	BookingID  *string         `json:"bookingId,omitempty"`
	Error      *string         `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

const attemptsSchema = `CREATE TABLE IF NOT EXISTS checkout_attempts (
	id          CHAR(36)      NOT NULL PRIMARY KEY,
	user_id     VARCHAR(64)   NOT NULL,
	showtime_id VARCHAR(64)   NOT NULL,
	seats       VARCHAR(512)  NOT NULL,
	method      VARCHAR(16)   NOT NULL,
	total_price DECIMAL(14,2) NOT NULL,
	state       VARCHAR(32)   NOT NULL,
	booking_id  VARCHAR(64)   NULL,
	error       VARCHAR(512)  NULL,
	created_at  DATETIME(3)   NOT NULL,
	KEY idx_checkout_attempts_user (user_id, created_at),
	KEY idx_checkout_attempts_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the table when it does not exist yet.
func (r *AttemptRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, attemptsSchema)
	return err
}

// Record implements checkout.Recorder.
func (r *AttemptRepo) Record(ctx context.Context, a checkout.Attempt) error {
	const q = `INSERT INTO checkout_attempts
		(id, user_id, showtime_id, seats, method, total_price, state, booking_id, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.UserID, a.ShowtimeID, strings.Join(a.Seats, ","), string(a.Method),
		a.Total, string(a.State), nullString(a.BookingID), nullString(truncate(a.Error, 512)), a.CreatedAt.UTC(),
	)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrConflict
	}
	return err
}

// ListByUser returns the user's latest attempts, newest first.
func (r *AttemptRepo) ListByUser(ctx context.Context, userID string, limit int) ([]AttemptRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `SELECT id, user_id, showtime_id, seats, method, total_price, state, booking_id, error, created_at
		FROM checkout_attempts WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AttemptRecord{}
	for rows.Next() {
		var (
			rec       AttemptRecord
			seats     string
			bookingID sql.NullString
			errText   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ShowtimeID, &seats, &rec.Method,
			&rec.TotalPrice, &rec.State, &bookingID, &errText, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if seats != "" {
			rec.Seats = strings.Split(seats, ",")
		}
		if bookingID.Valid {
			rec.BookingID = &bookingID.String
		}
		if errText.Valid {
			rec.Error = &errText.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PurgeBefore deletes attempts older than cutoff and reports how many went.
func (r *AttemptRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM checkout_attempts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
