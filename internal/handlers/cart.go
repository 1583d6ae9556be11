package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mvoronin/laptopshop/internal/logging"
	"github.com/mvoronin/laptopshop/internal/models"
	"github.com/mvoronin/laptopshop/internal/mykafka"
	"github.com/mvoronin/laptopshop/internal/service/cart"
	"github.com/mvoronin/laptopshop/internal/session"
)

type CartHandler struct {
	Carts    *cart.Service
	Sessions session.Store
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["cartID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func sessionToken(c echo.Context) string {
	if ck, err := c.Cookie(session.CookieName); err == nil {
		return ck.Value
	}
	return ""
}

// ensureSession returns the session token, minting one and setting the
// cookie when the browser arrives without it.
func ensureSession(c echo.Context) string {
	if tok := sessionToken(c); tok != "" {
		return tok
	}
	tok := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  time.Now().Add(session.BindingTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return tok
}

// sessionCart resolves the session's cart id; ok is false when the
// session has none.
func (h *CartHandler) sessionCart(c echo.Context) (uint, bool, error) {
	tok := sessionToken(c)
	if tok == "" {
		return 0, false, nil
	}
	cartID, err := h.Sessions.CartID(c.Request().Context(), tok)
	if errors.Is(err, session.ErrNoCart) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cartID, true, nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	cartID, ok, err := h.sessionCart(c)
	if err != nil {
		l.Error("get_cart_failed", "status", 500, "reason", "session_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve session")
	}
	if !ok {
		return c.JSON(http.StatusOK, models.Cart{Items: []models.CartItem{}})
	}

	crt, err := h.Carts.Get(ctx, cartID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return c.JSON(http.StatusOK, models.Cart{Items: []models.CartItem{}})
		}
		l.Error("get_cart_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}
	return c.JSON(http.StatusOK, crt)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	itemID, err := strconv.Atoi(c.Param("id"))
	if err != nil || itemID <= 0 {
		l.Warn("add_item_failed", "status", 400, "reason", "invalid_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	tok := ensureSession(c)
	cartID, err := h.Sessions.CartID(ctx, tok)
	if errors.Is(err, session.ErrNoCart) {
		created, err := h.Carts.Create(ctx)
		if err != nil {
			l.Error("add_item_failed", "status", 500, "reason", "cannot create cart", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create cart")
		}
		if err := h.Sessions.BindCart(ctx, tok, created.ID); err != nil {
			l.Error("add_item_failed", "status", 500, "reason", "cannot bind cart", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot bind cart")
		}
		cartID = created.ID
	} else if err != nil {
		l.Error("add_item_failed", "status", 500, "reason", "session_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve session")
	}

	line, err := h.Carts.AddItem(ctx, cartID, uint(itemID))
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			l.Warn("add_item_failed", "status", 404, "reason", "unknown_item", "itemID", itemID)
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		l.Error("add_item_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add item")
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_added",
		"cartID":   cartID,
		"itemID":   itemID,
		"quantity": line.Quantity,
	})

	l.Info("add_item_success", "status", 200, "cartID", cartID, "itemID", itemID)
	return c.JSON(http.StatusOK, line)
}

// AdjustLine applies ?action=increase|decrease|remove to one cart line.
// Unknown actions are a 400, not a silent no-op.
func (h *CartHandler) AdjustLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.adjust_line")

	lineID, err := strconv.Atoi(c.Param("id"))
	if err != nil || lineID <= 0 {
		l.Warn("adjust_line_failed", "status", 400, "reason", "invalid_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid line id")
	}

	action, err := cart.ParseAction(c.QueryParam("action"))
	if err != nil {
		l.Warn("adjust_line_failed", "status", 400, "reason", "unknown_action", "action", c.QueryParam("action"))
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cartID, ok, err := h.sessionCart(c)
	if err != nil {
		l.Error("adjust_line_failed", "status", 500, "reason", "session_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve session")
	}
	if !ok {
		l.Warn("adjust_line_failed", "status", 404, "reason", "no_cart")
		return echo.NewHTTPError(http.StatusNotFound, "no cart for this session")
	}

	if err := h.Carts.Adjust(ctx, cartID, uint(lineID), action); err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			l.Warn("adjust_line_failed", "status", 404, "reason", "unknown_line", "lineID", lineID)
			return echo.NewHTTPError(http.StatusNotFound, "cart line not found")
		}
		l.Error("adjust_line_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot adjust line")
	}

	h.publish(c, map[string]any{
		"type":   "cart_line_adjusted",
		"cartID": cartID,
		"lineID": lineID,
		"action": c.QueryParam("action"),
	})

	crt, err := h.Carts.Get(ctx, cartID)
	if err != nil {
		l.Error("adjust_line_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}
	return c.JSON(http.StatusOK, crt)
}

func (h *CartHandler) EmptyCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.empty")

	cartID, ok, err := h.sessionCart(c)
	if err != nil {
		l.Error("empty_cart_failed", "status", 500, "reason", "session_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve session")
	}
	if !ok {
		return c.JSON(http.StatusOK, models.Cart{Items: []models.CartItem{}})
	}

	if err := h.Carts.Empty(ctx, cartID); err != nil {
		l.Error("empty_cart_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot empty cart")
	}

	h.publish(c, map[string]any{
		"type":   "cart_emptied",
		"cartID": cartID,
	})

	crt, err := h.Carts.Get(ctx, cartID)
	if err != nil {
		l.Error("empty_cart_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}
	return c.JSON(http.StatusOK, crt)
}
