package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mvoronin/laptopshop/internal/logging"
	"github.com/mvoronin/laptopshop/internal/mykafka"
	"github.com/mvoronin/laptopshop/internal/service/order"
	"github.com/mvoronin/laptopshop/internal/service/token"
	"github.com/mvoronin/laptopshop/internal/session"
)

type OrderHandler struct {
	Orders   *order.Service
	Sessions session.Store
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type checkoutRequest struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Checkout converts the session's cart into an order. Runs behind
// Authenticate + RequireCustomer; the session binding is cleared on
// success so the next add starts a fresh cart.
func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	customer := token.CustomerFrom(c)
	if customer == nil {
		l.Warn("checkout_failed", "status", 401, "reason", "no_customer")
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	tok := sessionToken(c)
	if tok == "" {
		l.Warn("checkout_failed", "status", 409, "reason", "no_session")
		return echo.NewHTTPError(http.StatusConflict, "no active cart")
	}
	cartID, err := h.Sessions.CartID(ctx, tok)
	if errors.Is(err, session.ErrNoCart) {
		l.Warn("checkout_failed", "status", 409, "reason", "no_cart")
		return echo.NewHTTPError(http.StatusConflict, "no active cart")
	}
	if err != nil {
		l.Error("checkout_failed", "status", 500, "reason", "session_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve session")
	}

	ord, err := h.Orders.Checkout(ctx, cartID, customer, order.CheckoutInput{
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, order.ErrValidation):
			l.Warn("checkout_failed", "status", 400, "reason", "validation", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, order.ErrEmptyCart), errors.Is(err, order.ErrNotFound):
			l.Warn("checkout_failed", "status", 409, "reason", "empty_or_missing_cart", "cartID", cartID)
			return echo.NewHTTPError(http.StatusConflict, "no active cart")
		case errors.Is(err, order.ErrAlreadyOrdered):
			l.Warn("checkout_failed", "status", 409, "reason", "already_ordered", "cartID", cartID)
			return echo.NewHTTPError(http.StatusConflict, "cart already checked out")
		default:
			l.Error("checkout_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create order")
		}
	}

	// The cart row stays, permanently tied to the order; only the
	// session binding goes away.
	if err := h.Sessions.ClearCart(ctx, tok); err != nil {
		l.Error("checkout_session_clear_failed", "cartID", cartID, "error", err)
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"orderID": ord.ID,
		"cartID":  ord.CartID,
		"total":   ord.Total,
	})

	l.Info("checkout_success", "status", 200, "orderID", ord.ID, "total", ord.Total)
	return c.JSON(http.StatusOK, ord)
}

// Profile returns the customer and their order history, newest first.
func (h *OrderHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.profile")

	customer := token.CustomerFrom(c)
	if customer == nil {
		l.Warn("profile_failed", "status", 401, "reason", "no_customer")
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	orders, err := h.Orders.ListByCustomer(ctx, customer.ID)
	if err != nil {
		l.Error("profile_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load orders")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"customer": customer,
		"orders":   orders,
	})
}

// OrderDetail is ownership-checked; an order belonging to another
// customer reads as 404 rather than leaking its existence.
func (h *OrderHandler) OrderDetail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.detail")

	customer := token.CustomerFrom(c)
	if customer == nil {
		l.Warn("order_detail_failed", "status", 401, "reason", "no_customer")
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		l.Warn("order_detail_failed", "status", 400, "reason", "invalid_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	ord, err := h.Orders.GetForCustomer(ctx, uint(orderID), customer.ID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			l.Warn("order_detail_failed", "status", 404, "reason", "not_found_or_foreign", "orderID", orderID)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("order_detail_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order")
	}

	return c.JSON(http.StatusOK, ord)
}
