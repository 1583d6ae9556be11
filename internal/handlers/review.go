package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mvoronin/laptopshop/internal/logging"
	"github.com/mvoronin/laptopshop/internal/service/review"
	"github.com/mvoronin/laptopshop/internal/service/token"
)

type ReviewHandler struct {
	Svc *review.Service
}

// AddReview runs behind Authenticate; any logged-in identity may
// review, a Customer profile is not required.
func (h *ReviewHandler) AddReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.add")

	userID := token.UserID(c)
	if userID == 0 {
		l.Warn("add_review_failed", "status", 401, "reason", "not_authenticated")
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	var req struct {
		Rate    uint   `json:"rate"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_review_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	slug := c.Param("slug")
	rev, err := h.Svc.Add(ctx, userID, slug, req.Rate, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrValidation):
			l.Warn("add_review_failed", "status", 400, "reason", "validation", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, review.ErrNotFound):
			l.Warn("add_review_failed", "status", 404, "reason", "unknown_item", "slug", slug)
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		default:
			l.Error("add_review_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot add review")
		}
	}

	l.Info("add_review_success", "status", 201, "itemID", rev.ItemID, "rate", rev.Rate)
	return c.JSON(http.StatusCreated, rev)
}
