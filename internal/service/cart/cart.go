// Package cart implements the session-scoped cart engine. Every
// mutation runs in one transaction against the cart's primary key and
// ends with an authoritative recompute of the cart total from its
// lines, so the total can never drift from the sum of line subtotals.
package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownAction = errors.New("unknown cart action")
)

// Action is the closed set of line adjustments. Parsing the incoming
// string up front makes an unknown action a transport-level error
// instead of a silent no-op.
type Action uint8

const (
	ActionIncrease Action = iota
	ActionDecrease
	ActionRemove
)

func ParseAction(s string) (Action, error) {
	switch s {
	case "increase":
		return ActionIncrease, nil
	case "decrease":
		return ActionDecrease, nil
	case "remove":
		return ActionRemove, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

type Service struct {
	DB *gorm.DB
}

// Get returns the cart with its lines and their items preloaded.
func (s *Service) Get(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("Items.Item").
		First(&cart, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create makes a fresh empty cart. The caller binds it to the session.
func (s *Service) Create(ctx context.Context) (*models.Cart, error) {
	cart := models.Cart{Total: 0}
	if err := s.DB.WithContext(ctx).Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem puts one unit of the item in the cart. An existing line gets
// quantity+1 with the unit charged at the item's current selling price;
// a new line snapshots that price as its rate.
func (s *Service) AddItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error) {
	var line models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
			}
			return err
		}

		err := tx.Where("cart_id = ? AND item_id = ?", cartID, itemID).First(&line).Error
		switch {
		case err == nil:
			line.Quantity++
			line.Subtotal += item.SellingPrice
			if err := tx.Save(&line).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.CartItem{
				CartID:   cartID,
				ItemID:   itemID,
				Quantity: 1,
				Rate:     item.SellingPrice,
				Subtotal: item.SellingPrice,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return recalcTotal(tx, cartID)
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Adjust applies one parsed action to a line. The line must belong to
// the given cart; a decrease that reaches zero deletes the line, a
// remove deletes it unconditionally.
func (s *Service) Adjust(ctx context.Context, cartID, lineID uint, action Action) error {
	switch action {
	case ActionIncrease:
		return s.IncreaseLine(ctx, cartID, lineID)
	case ActionDecrease:
		return s.DecreaseLine(ctx, cartID, lineID)
	case ActionRemove:
		return s.RemoveLine(ctx, cartID, lineID)
	default:
		return ErrUnknownAction
	}
}

func (s *Service) IncreaseLine(ctx context.Context, cartID, lineID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := lockLine(tx, cartID, lineID)
		if err != nil {
			return err
		}
		line.Quantity++
		line.Subtotal += line.Rate
		if err := tx.Save(line).Error; err != nil {
			return err
		}
		return recalcTotal(tx, cartID)
	})
}

func (s *Service) DecreaseLine(ctx context.Context, cartID, lineID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := lockLine(tx, cartID, lineID)
		if err != nil {
			return err
		}
		if line.Quantity <= 1 {
			if err := tx.Delete(line).Error; err != nil {
				return err
			}
			return recalcTotal(tx, cartID)
		}
		line.Quantity--
		line.Subtotal -= line.Rate
		if err := tx.Save(line).Error; err != nil {
			return err
		}
		return recalcTotal(tx, cartID)
	})
}

func (s *Service) RemoveLine(ctx context.Context, cartID, lineID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := lockLine(tx, cartID, lineID)
		if err != nil {
			return err
		}
		if err := tx.Delete(line).Error; err != nil {
			return err
		}
		return recalcTotal(tx, cartID)
	})
}

// Empty deletes every line and zeroes the total.
func (s *Service) Empty(ctx context.Context, cartID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return recalcTotal(tx, cartID)
	})
}

// Claim transfers an anonymous cart to the customer. Carts already
// owned by someone (this customer included) are left untouched; there
// is no merging.
func (s *Service) Claim(ctx context.Context, cartID, customerID uint) error {
	res := s.DB.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND customer_id IS NULL", cartID).
		Update("customer_id", customerID)
	return res.Error
}

func lockLine(tx *gorm.DB, cartID, lineID uint) (*models.CartItem, error) {
	var line models.CartItem
	err := tx.Where("id = ? AND cart_id = ?", lineID, cartID).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart line %d: %w", lineID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// recalcTotal is the single place cart.total is written from. Summing
// the surviving lines inside the same transaction as the mutation keeps
// the invariant total == sum(subtotal) on every path.
func recalcTotal(tx *gorm.DB, cartID uint) error {
	var total uint
	err := tx.Model(&models.CartItem{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(SUM(subtotal), 0)").
		Scan(&total).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("total", total).Error
}
