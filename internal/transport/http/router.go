package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/mvoronin/laptopshop/internal/handlers"
	"github.com/mvoronin/laptopshop/internal/middleware/cartclaim"
	"github.com/mvoronin/laptopshop/internal/service/token"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	CatalogHandler *handlers.CatalogHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	ReviewHandler  *handlers.ReviewHandler
	SearchHandler  *handlers.SearchHandler
	Tokens         *token.Service
	CartClaim      *cartclaim.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	// The claim stage runs on every route that can carry a session, so
	// an anonymous cart moves under the customer on the first
	// authenticated request, whatever it is.
	v1 := e.Group("/api/v1", d.Tokens.AuthenticateOptional, d.CartClaim.Claim)

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	v1.GET("/catalog", d.CatalogHandler.ListCatalog)
	v1.GET("/catalog/:slug", d.CatalogHandler.ListCatalog)
	v1.GET("/items/:slug", d.CatalogHandler.ItemDetail)
	v1.GET("/search", d.SearchHandler.Search)

	v1.POST("/items/:slug/reviews", d.ReviewHandler.AddReview, d.Tokens.Authenticate)

	v1.GET("/cart", d.CartHandler.GetCart)
	v1.POST("/cart/items/:id", d.CartHandler.AddToCart)
	v1.POST("/cart/lines/:id", d.CartHandler.AdjustLine)
	v1.DELETE("/cart", d.CartHandler.EmptyCart)

	gated := v1.Group("", d.Tokens.Authenticate, d.Tokens.RequireCustomer)
	gated.POST("/checkout", d.OrderHandler.Checkout)
	gated.GET("/profile", d.OrderHandler.Profile)
	gated.GET("/profile/orders/:id", d.OrderHandler.OrderDetail)
}
