// Package review inserts item reviews and keeps the item's
// denormalized average rating in step with them.
package review

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation")
)

type Service struct {
	DB *gorm.DB
}

// Add stores the review and recomputes the item's average rating in
// the same transaction, so the stored aggregate never lags the reviews.
func (s *Service) Add(ctx context.Context, userID uint, itemSlug string, rate uint, comment string) (*models.Review, error) {
	if rate < 1 || rate > 5 {
		return nil, fmt.Errorf("rate must be between 1 and 5: %w", ErrValidation)
	}

	var rev models.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.Where("slug = ?", itemSlug).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("item %q: %w", itemSlug, ErrNotFound)
			}
			return err
		}

		rev = models.Review{
			UserID:  userID,
			ItemID:  item.ID,
			Rate:    rate,
			Comment: comment,
		}
		if err := tx.Create(&rev).Error; err != nil {
			return err
		}

		avg, err := Average(tx, item.ID)
		if err != nil {
			return err
		}
		return tx.Model(&models.Item{}).Where("id = ?", item.ID).Update("average_rating", avg).Error
	})
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// Average is the arithmetic mean of the item's rates rounded to two
// decimal places, 0 when the item has no reviews.
func Average(db *gorm.DB, itemID uint) (float64, error) {
	var avg *float64
	err := db.Model(&models.Review{}).
		Where("item_id = ?", itemID).
		Select("AVG(rate)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return math.Round(*avg*100) / 100, nil
}
