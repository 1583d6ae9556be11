package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/config"
	"github.com/mvoronin/laptopshop/internal/models"
	cartsvc "github.com/mvoronin/laptopshop/internal/service/cart"
	ordersvc "github.com/mvoronin/laptopshop/internal/service/order"
	reviewsvc "github.com/mvoronin/laptopshop/internal/service/review"
	"github.com/mvoronin/laptopshop/internal/service/token"
	"github.com/mvoronin/laptopshop/internal/session"
)

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Sessions *session.MemoryStore
	Tokens   *token.Service
	Auth     *AuthHandler
	Cart     *CartHandler
	Order    *OrderHandler
	Review   *ReviewHandler
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	sessions := session.NewMemoryStore()
	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	carts := &cartsvc.Service{DB: db}

	return &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       db,
		Sessions: sessions,
		Tokens:   tokens,
		Auth:     &AuthHandler{DB: db, Tokens: tokens},
		Cart:     &CartHandler{Carts: carts, Sessions: sessions},
		Order:    &OrderHandler{Orders: &ordersvc.Service{DB: db}, Sessions: sessions},
		Review:   &ReviewHandler{Svc: &reviewsvc.Service{DB: db}},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) seedItem(name string, price uint) models.Item {
	env.T.Helper()
	category := models.Category{Name: "Laptops", Slug: "laptops"}
	require.NoError(env.T, env.DB.FirstOrCreate(&category, models.Category{Slug: "laptops"}).Error)
	item := models.Item{Name: name, Slug: name, CategoryID: category.ID, SellingPrice: price, Active: true}
	require.NoError(env.T, env.DB.Create(&item).Error)
	return item
}

func (env *testEnv) seedCustomer(username string) *models.Customer {
	env.T.Helper()
	user := models.User{Username: username, FirstName: "Test", LastName: "User", PasswordHash: "x", Role: "user"}
	require.NoError(env.T, env.DB.Create(&user).Error)
	customer := models.Customer{UserID: user.ID}
	require.NoError(env.T, env.DB.Create(&customer).Error)
	customer.User = user
	return &customer
}

func sessionCookie(token string) *http.Cookie {
	return &http.Cookie{Name: session.CookieName, Value: token, Path: "/"}
}
