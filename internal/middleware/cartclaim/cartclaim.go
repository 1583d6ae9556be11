// Package cartclaim moves anonymous carts under authenticated
// customers. It is a single middleware stage that runs after
// authentication, before the handler, on every request that can carry
// a session.
package cartclaim

import (
	"errors"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/logging"
	"github.com/mvoronin/laptopshop/internal/models"
	"github.com/mvoronin/laptopshop/internal/service/cart"
	"github.com/mvoronin/laptopshop/internal/service/token"
	"github.com/mvoronin/laptopshop/internal/session"
)

type Middleware struct {
	DB       *gorm.DB
	Carts    *cart.Service
	Sessions session.Store
}

// Claim transfers the session's cart to the requesting customer when
// the request is authenticated and the cart is still anonymous. Claim
// failures never fail the request; the cart stays anonymous until the
// next attempt.
func (m *Middleware) Claim(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := token.UserID(c)
		if userID == 0 {
			return next(c)
		}
		ck, err := c.Cookie(session.CookieName)
		if err != nil || ck.Value == "" {
			return next(c)
		}

		ctx := c.Request().Context()
		cartID, err := m.Sessions.CartID(ctx, ck.Value)
		if err != nil {
			if !errors.Is(err, session.ErrNoCart) {
				logging.FromContext(ctx).Warn("cart_claim_failed", "reason", "session_lookup", "error", err)
			}
			return next(c)
		}

		var customer models.Customer
		if err := m.DB.WithContext(ctx).Where("user_id = ?", userID).First(&customer).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logging.FromContext(ctx).Warn("cart_claim_failed", "reason", "customer_lookup", "error", err)
			}
			return next(c)
		}

		if err := m.Carts.Claim(ctx, cartID, customer.ID); err != nil {
			logging.FromContext(ctx).Warn("cart_claim_failed", "reason", "db_error", "error", err)
		}
		return next(c)
	}
}
