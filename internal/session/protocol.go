package session

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-checkout/internal/checkout"
	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

// Client message types.
const (
	MsgToggle = "toggle"
	MsgClear  = "clear"
	MsgMethod = "method"
	MsgSubmit = "submit"
)

// Server message types.
const (
	MsgSeats    = "seats"
	MsgLoading  = "loading"
	MsgNotice   = "notice"
	MsgRedirect = "redirect"
)

// Inbound is a message from the checkout page.
type Inbound struct {
	Type   string `json:"type" validate:"required,oneof=toggle clear method submit"`
	Seat   string `json:"seat" validate:"required_if=Type toggle"`
	Method string `json:"method" validate:"required_if=Type method"`
}

var validate = validator.New()

// DecodeInbound parses and validates one client frame.
func DecodeInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("decode message: %w", err)
	}
	if err := validate.Struct(in); err != nil {
		return Inbound{}, fmt.Errorf("invalid message: %w", err)
	}
	return in, nil
}

// SeatsMessage carries the whole seat map and the order summary.
type SeatsMessage struct {
	Type      string          `json:"type"`
	View      seatmap.View    `json:"view"`
	SeatPrice decimal.Decimal `json:"seatPrice"`
	Total     decimal.Decimal `json:"total"`
	Method    checkout.Method `json:"method"`
}

// LoadingMessage toggles the blocking busy indicator.
type LoadingMessage struct {
	Type   string         `json:"type"`
	Active bool           `json:"active"`
	Step   checkout.State `json:"step,omitempty"`
}

// Notice levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// NoticeMessage is a dismissable message for the viewer.
type NoticeMessage struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RedirectMessage sends the browser to URL with a full page navigation.
type RedirectMessage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// MethodOption is one payment method and whether it can be used yet.
type MethodOption struct {
	Method  checkout.Method `json:"method"`
	Enabled bool            `json:"enabled"`
}

// MethodMessage reports the selected payment method.
type MethodMessage struct {
	Type    string          `json:"type"`
	Method  checkout.Method `json:"method"`
	Options []MethodOption  `json:"options"`
}

func notice(level, msg string) NoticeMessage {
	return NoticeMessage{Type: MsgNotice, Level: level, Message: msg}
}
