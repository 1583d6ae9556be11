// Package order implements the one-way cart-to-order transition and
// the customer's order history reads.
package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyCart      = errors.New("cart has no items")
	ErrAlreadyOrdered = errors.New("cart already checked out")
	ErrValidation     = errors.New("validation")
)

type Service struct {
	DB *gorm.DB
}

type CheckoutInput struct {
	Phone   string
	Address string
}

// Checkout snapshots the cart into an Order. The cart row survives and
// becomes permanently tied to the order: the unique index on
// orders.cart_id rejects a second checkout of the same cart even if two
// requests race past the existence check.
func (s *Service) Checkout(ctx context.Context, cartID uint, customer *models.Customer, in CheckoutInput) (*models.Order, error) {
	if in.Phone == "" || in.Address == "" {
		return nil, fmt.Errorf("phone and address are required: %w", ErrValidation)
	}

	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.First(&cart, cartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
			}
			return err
		}

		var lines int64
		if err := tx.Model(&models.CartItem{}).Where("cart_id = ?", cartID).Count(&lines).Error; err != nil {
			return err
		}
		if lines == 0 {
			return ErrEmptyCart
		}

		var existing models.Order
		err := tx.Where("cart_id = ?", cartID).First(&existing).Error
		if err == nil {
			return ErrAlreadyOrdered
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// A cart the claim stage never caught (the buyer authenticated
		// on this very request) is claimed here, in the same
		// transaction, so the order always lands in the buyer's history.
		if cart.CustomerID == nil {
			err := tx.Model(&models.Cart{}).
				Where("id = ? AND customer_id IS NULL", cart.ID).
				Update("customer_id", customer.ID).Error
			if err != nil {
				return err
			}
		}

		order = models.Order{
			CartID:    cart.ID,
			CreatedBy: customer.User.FullName(),
			Phone:     in.Phone,
			Address:   in.Address,
			Status:    models.StatusReceived,
			Subtotal:  cart.Total,
			Total:     cart.Total,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomer returns the customer's orders, newest first. An order
// belongs to a customer through its cart.
func (s *Service) ListByCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Joins("JOIN carts ON carts.id = orders.cart_id").
		Where("carts.customer_id = ?", customerID).
		Order("orders.id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetForCustomer loads one order and verifies the requesting customer
// owns it through the cart. A foreign order reads as not found.
func (s *Service) GetForCustomer(ctx context.Context, orderID, customerID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("Cart").
		Preload("Cart.Items").
		Preload("Cart.Items.Item").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if order.Cart.CustomerID == nil || *order.Cart.CustomerID != customerID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return &order, nil
}
