package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mvoronin/laptopshop/internal/models"
	"github.com/mvoronin/laptopshop/internal/session"
)

func TestAddToCartMintsSessionAndCart(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem("thinkpad", 50)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var line models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))
	require.Equal(t, uint(1), line.Quantity)
	require.Equal(t, uint(50), line.Rate)
	require.Equal(t, uint(50), line.Subtotal)

	// The handler set a session cookie and bound the new cart to it.
	var tok string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == session.CookieName {
			tok = ck.Value
		}
	}
	require.NotEmpty(t, tok)

	cartID, err := env.Sessions.CartID(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, line.CartID, cartID)
}

func TestAddToCartReusesSessionCart(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem("xps", 70)

	add := func(cookies ...*http.Cookie) *models.CartItem {
		rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items/1", nil, cookies...)
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(item.ID))
		require.NoError(t, env.Cart.AddToCart(c))
		require.Equal(t, http.StatusOK, rec.Code)
		var line models.CartItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))
		return &line
	}

	first := add()
	var tok string
	require.NoError(t, env.Sessions.BindCart(context.Background(), "fixed-token", first.CartID))
	tok = "fixed-token"

	second := add(sessionCookie(tok))
	require.Equal(t, first.CartID, second.CartID)
	require.Equal(t, uint(2), second.Quantity)

	var count int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("cart_id = ?", first.CartID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddToCartUnknownItem(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items/999", nil)
	c.SetParamNames("id")
	c.SetParamValues("999")
	err := env.Cart.AddToCart(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetCartWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/cart", nil)
	require.NoError(t, env.Cart.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var crt models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crt))
	require.Empty(t, crt.Items)
	require.Zero(t, crt.Total)
}

func TestAdjustLineUnknownAction(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/lines/1?action=explode", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := env.Cart.AdjustLine(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAdjustLineFlow(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem("macbook", 100)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(item.ID))
	require.NoError(t, env.Cart.AddToCart(c))
	var line models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))

	require.NoError(t, env.Sessions.BindCart(context.Background(), "tok", line.CartID))

	adjust := func(action string) *models.Cart {
		rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/lines/1?action="+action, nil, sessionCookie("tok"))
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(line.ID))
		require.NoError(t, env.Cart.AdjustLine(c))
		require.Equal(t, http.StatusOK, rec.Code)
		var crt models.Cart
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crt))
		return &crt
	}

	crt := adjust("increase")
	require.Equal(t, uint(200), crt.Total)
	require.Len(t, crt.Items, 1)
	require.Equal(t, uint(2), crt.Items[0].Quantity)

	crt = adjust("decrease")
	require.Equal(t, uint(100), crt.Total)

	crt = adjust("remove")
	require.Zero(t, crt.Total)
	require.Empty(t, crt.Items)
}

func TestEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	first := env.seedItem("item-a", 25)
	second := env.seedItem("item-b", 40)

	addItem := func(id uint, cookies ...*http.Cookie) models.CartItem {
		rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart/items/1", nil, cookies...)
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(id))
		require.NoError(t, env.Cart.AddToCart(c))
		var line models.CartItem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &line))
		return line
	}

	line := addItem(first.ID)
	require.NoError(t, env.Sessions.BindCart(context.Background(), "tok", line.CartID))
	addItem(second.ID, sessionCookie("tok"))

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/v1/cart", nil, sessionCookie("tok"))
	require.NoError(t, env.Cart.EmptyCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var crt models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crt))
	require.Zero(t, crt.Total)
	require.Empty(t, crt.Items)
}
