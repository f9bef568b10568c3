package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-checkout/internal/model"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", time.Second, discard())
}

func TestCreateBookingSendsNoPrice(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":"b1","bookingCode":"XK42","status":"pending","totalPrice":200000,"seats":["C1","C2"]}}`)
	})

	b, err := c.CreateBooking(context.Background(), "tok", BookingRequest{ShowtimeID: "s1", Seats: []string{"C1", "C2"}})
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.True(t, b.TotalPrice.Equal(decimal.NewFromInt(200000)))

	assert.Equal(t, map[string]any{"showtimeId": "s1", "seats": []any{"C1", "C2"}}, body)
}

func TestCreateMomoPaymentSendsNumericAmount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"bookingId":"b1","amount":200000}`, string(raw))
		_, _ = io.WriteString(w, `{"data":{"payUrl":"https://pay.example/abc","transactionId":"t9"}}`)
	})

	p, err := c.CreateMomoPayment(context.Background(), "tok", PaymentRequest{BookingID: "b1", Amount: json.Number("200000")})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", p.PayURL)
	assert.Equal(t, "b1", p.BookingID)
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"Seat C1 is already booked"}`)
	})

	_, err := c.CreateBooking(context.Background(), "tok", BookingRequest{ShowtimeID: "s1", Seats: []string{"C1"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	msg, ok := ServerMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "Seat C1 is already booked", msg)
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings/nope", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.FetchBooking(context.Background(), "tok", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := ServerMessage(err)
	assert.False(t, ok)
}

func TestSeatStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/showtimes/s1/seats", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":{"bookedSeats":["A1"],"totalSeats":80}}`)
	})
	s, err := c.SeatStatus(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, s.BookedSeats)
	assert.Equal(t, 80, s.TotalSeats)
}

type countingFetcher struct {
	calls int
	st    model.Showtime
	err   error
}

func (f *countingFetcher) FetchShowtime(context.Context, string) (model.Showtime, error) {
	f.calls++
	return f.st, f.err
}

func TestCachedShowtimesMissThenStore(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := &countingFetcher{st: model.Showtime{ID: "s1", MovieTitle: "Dune", Price: decimal.NewFromInt(100000)}}
	c := NewCachedShowtimes(next, rdb, time.Minute, "cache", discard())

	payload, err := json.Marshal(next.st)
	require.NoError(t, err)
	mock.ExpectGet("cache:showtime:s1").RedisNil()
	mock.ExpectSetEx("cache:showtime:s1", payload, time.Minute).SetVal("OK")

	st, err := c.FetchShowtime(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", st.MovieTitle)
	assert.Equal(t, 1, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedShowtimesHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := &countingFetcher{}
	c := NewCachedShowtimes(next, rdb, time.Minute, "cache", discard())

	mock.ExpectGet("cache:showtime:s1").SetVal(`{"id":"s1","movieTitle":"Dune","price":"100000"}`)

	st, err := c.FetchShowtime(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", st.MovieTitle)
	assert.Zero(t, next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedShowtimesRedisDownFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	next := &countingFetcher{err: errors.New("boom")}
	c := NewCachedShowtimes(next, rdb, time.Minute, "cache", discard())

	mock.ExpectGet("cache:showtime:s1").SetErr(errors.New("connection refused"))

	_, err := c.FetchShowtime(context.Background(), "s1")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, next.calls)
}
