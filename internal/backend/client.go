// Package backend is a typed client for the booking backend REST API.
// The backend owns showtimes, bookings and payments; the gateway forwards
// the viewer's bearer token and never computes anything authoritative.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/cinema-checkout/internal/model"
)

// BookingRequest is the body of POST /bookings.  The price is left out on
// purpose: the backend recomputes it.
type BookingRequest struct {
	ShowtimeID string   `json:"showtimeId"`
	Seats      []string `json:"seats"`
}

// PaymentRequest is the body of POST /payments/momo.
type PaymentRequest struct {
	BookingID string      `json:"bookingId"`
	Amount    json.Number `json:"amount"`
}

// SeatStatus is the backend's view of a showtime's seats.
type SeatStatus struct {
	BookedSeats []string `json:"bookedSeats"`
	TotalSeats  int      `json:"totalSeats"`
}

// envelope is the response shape used by every backend endpoint.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// Client talks to the booking backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New returns a client rooted at baseURL (e.g. "http://backend:8080/api").
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// FetchShowtime loads one showtime record.
func (c *Client) FetchShowtime(ctx context.Context, id string) (model.Showtime, error) {
	var st model.Showtime
	err := c.do(ctx, http.MethodGet, "/showtimes/"+url.PathEscape(id), "", nil, &st)
	return st, err
}

// SeatStatus loads the booked seats of a showtime.
func (c *Client) SeatStatus(ctx context.Context, showtimeID string) (SeatStatus, error) {
	var s SeatStatus
	err := c.do(ctx, http.MethodGet, "/showtimes/"+url.PathEscape(showtimeID)+"/seats", "", nil, &s)
	return s, err
}

// CreateBooking creates a pending booking for the seats.
func (c *Client) CreateBooking(ctx context.Context, token string, req BookingRequest) (model.Booking, error) {
	var b model.Booking
	err := c.do(ctx, http.MethodPost, "/bookings", token, req, &b)
	return b, err
}

// CreateMomoPayment asks the backend for a MoMo redirect URL.
func (c *Client) CreateMomoPayment(ctx context.Context, token string, req PaymentRequest) (model.PaymentSession, error) {
	var p model.PaymentSession
	if err := c.do(ctx, http.MethodPost, "/payments/momo", token, req, &p); err != nil {
		return p, err
	}
	if p.BookingID == "" {
		p.BookingID = req.BookingID
	}
	return p, nil
}

// FetchBooking loads a booking owned by the token's user.
func (c *Client) FetchBooking(ctx context.Context, token, id string) (model.Booking, error) {
	var b model.Booking
	err := c.do(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id), token, nil, &b)
	return b, err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "backend request failed", slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("backend: read %s %s: %w", method, path, err)
	}
	c.log.DebugContext(ctx, "backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
			if apiErr.Message == "" {
				apiErr.Message = env.Error
			}
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}
