// Package payment resolves what happened to a booking when the viewer
// comes back from the payment provider.
package payment

import (
	"net/url"
	"strings"
)

// Outcome is the classified result of a payment return.
type Outcome string

const (
	Indeterminate Outcome = "indeterminate"
	Success       Outcome = "success"
	Failure       Outcome = "failure"
)

// Classification is what the return URL alone says.
type Classification struct {
	Outcome   Outcome
	BookingID string
	Reasons   []string
}

// ReasonMissingBooking is given when the return carries no booking reference
// and no marker.
const ReasonMissingBooking = "The payment result did not include a booking reference."

// Classify reads the provider or internal return parameters.
//
// Recognised markers:
//
//	status=success|failed|cancelled   internal failure redirects and normalised returns
//	resultCode=0|<other>              MoMo return; 0 is success
//
// The booking is taken from bookingId, falling back to MoMo's orderId.
// Failure reasons come from message and reason.
func Classify(q url.Values) Classification {
	c := Classification{BookingID: strings.TrimSpace(q.Get("bookingId"))}
	if c.BookingID == "" {
		c.BookingID = strings.TrimSpace(q.Get("orderId"))
	}

	switch strings.ToLower(strings.TrimSpace(q.Get("status"))) {
	case "success", "succeeded", "paid", "confirmed":
		c.Outcome = Success
	case "failed", "failure", "error", "cancelled", "canceled":
		c.Outcome = Failure
	}
	if c.Outcome == "" && q.Has("resultCode") {
		if strings.TrimSpace(q.Get("resultCode")) == "0" {
			c.Outcome = Success
		} else {
			c.Outcome = Failure
		}
	}

	if c.Outcome != Success {
		for _, key := range []string{"message", "reason"} {
			for _, v := range q[key] {
				if v = strings.TrimSpace(v); v != "" && !contains(c.Reasons, v) {
					c.Reasons = append(c.Reasons, v)
				}
			}
		}
	}

	if c.Outcome == "" {
		if c.BookingID == "" {
			c.Outcome = Failure
			c.Reasons = append(c.Reasons, ReasonMissingBooking)
		} else {
			c.Outcome = Indeterminate
		}
	}
	return c
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
