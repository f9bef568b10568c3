package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-checkout/internal/backend"
	"github.com/iliyamo/cinema-checkout/internal/checkout"
	"github.com/iliyamo/cinema-checkout/internal/presence"
	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

// ShowtimeHandler serves read-only showtime data to guests and customers.
type ShowtimeHandler struct {
	Showtimes backend.ShowtimeFetcher
	Hub       presence.Hub
	Layout    seatmap.Layout
	Log       *slog.Logger
}

// GetShowtime returns the showtime record used by the checkout header.
func (h *ShowtimeHandler) GetShowtime(c echo.Context) error {
	id := c.Param("id")
	if !checkout.ValidShowtimeID(id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	st, err := h.Showtimes.FetchShowtime(c.Request().Context(), id)
	if err != nil {
		h.Log.WarnContext(c.Request().Context(), "fetch showtime", "showtime_id", id, "err", err)
		return backendError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// GetSeats returns the current seat map without any selection, for
// viewers that are not checking out.
func (h *ShowtimeHandler) GetSeats(c echo.Context) error {
	id := c.Param("id")
	if !checkout.ValidShowtimeID(id) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	snap, err := h.Hub.Snapshot(c.Request().Context(), id)
	if err != nil {
		h.Log.WarnContext(c.Request().Context(), "seat snapshot", "showtime_id", id, "err", err)
		return backendError(c, err)
	}
	return c.JSON(http.StatusOK, seatmap.Render(h.Layout, &snap, nil, true))
}
