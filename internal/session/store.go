// Package session binds an opaque browser token to a cart id. The
// token lives in a cookie; the binding lives in Redis (or in memory
// under tests). The storefront keeps exactly one key per session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CookieName is the cookie carrying the opaque session token.
const CookieName = "cart_session"

// TTL after which an abandoned anonymous cart binding expires.
const BindingTTL = 30 * 24 * time.Hour

var ErrNoCart = errors.New("session: no cart bound")

type Store interface {
	// CartID returns the cart bound to token, or ErrNoCart.
	CartID(ctx context.Context, token string) (uint, error)
	// BindCart binds token to cartID, replacing any previous binding.
	BindCart(ctx context.Context, token string, cartID uint) error
	// ClearCart removes the binding; clearing an unbound token is not an error.
	ClearCart(ctx context.Context, token string) error
}

// MemoryStore is the test double; it ignores the TTL.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]uint)}
}

func (s *MemoryStore) CartID(_ context.Context, token string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.carts[token]
	if !ok {
		return 0, ErrNoCart
	}
	return id, nil
}

func (s *MemoryStore) BindCart(_ context.Context, token string, cartID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[token] = cartID
	return nil
}

func (s *MemoryStore) ClearCart(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
	return nil
}
