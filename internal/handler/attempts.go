package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-checkout/internal/middleware"
	"github.com/iliyamo/cinema-checkout/internal/repository"
)

// AttemptLister reads a user's checkout attempts.
type AttemptLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]repository.AttemptRecord, error)
}

// AttemptHandler lists the caller's own checkout attempts.
type AttemptHandler struct {
	Repo AttemptLister
	Log  *slog.Logger
}

// List handles GET /v1/checkout/attempts?limit=N.
func (h *AttemptHandler) List(c echo.Context) error {
	id := middleware.Identity(c)
	if !id.Authenticated() {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 100"})
		}
		limit = n
	}
	items, err := h.Repo.ListByUser(c.Request().Context(), id.UserID, limit)
	if err != nil {
		h.Log.ErrorContext(c.Request().Context(), "list checkout attempts", "user_id", id.UserID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
