// Package handler exposes the gateway's HTTP and websocket endpoints.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-checkout/internal/backend"
)

// backendError maps a booking backend failure to a response.  Backend
// 4xx answers are passed through; anything else is a bad gateway.
func backendError(c echo.Context, err error) error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		msg, _ := backend.ServerMessage(err)
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		return c.JSON(apiErr.Status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "booking service unavailable"})
}
