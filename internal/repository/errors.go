// Package repository persists the gateway's own records in MySQL.  The
// booking backend owns bookings and showtimes; the only table kept here is
// the audit trail of checkout attempts.
package repository

import "errors"

// ErrConflict is returned when a row with the same key already exists.
var ErrConflict = errors.New("conflict")
