// Package catalog serves the read side of the storefront: category
// listings, active items and the item detail page.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/models"
)

var ErrNotFound = errors.New("not found")

type Service struct {
	DB *gorm.DB
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ActiveItems lists active items newest first, optionally filtered by
// category slug. An unknown slug is a not-found, not an empty list.
func (s *Service) ActiveItems(ctx context.Context, categorySlug string, offset, limit int) (int64, []models.Item, error) {
	q := s.DB.WithContext(ctx).Model(&models.Item{}).Where("active = ?", true)

	if categorySlug != "" {
		var category models.Category
		if err := s.DB.WithContext(ctx).Where("slug = ?", categorySlug).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, nil, fmt.Errorf("category %q: %w", categorySlug, ErrNotFound)
			}
			return 0, nil, err
		}
		q = q.Where("category_id = ?", category.ID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Item
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

type ItemDetail struct {
	Item    models.Item     `json:"item"`
	Reviews []models.Review `json:"reviews"`
	Average float64         `json:"average"`
}

// ItemBySlug returns the item with its reviews and the average rating
// computed from them (0 when there are none).
func (s *Service) ItemBySlug(ctx context.Context, slug string) (*ItemDetail, error) {
	var item models.Item
	if err := s.DB.WithContext(ctx).Where("slug = ?", slug).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item %q: %w", slug, ErrNotFound)
		}
		return nil, err
	}

	var reviews []models.Review
	if err := s.DB.WithContext(ctx).Where("item_id = ?", item.ID).Order("id DESC").Find(&reviews).Error; err != nil {
		return nil, err
	}

	return &ItemDetail{
		Item:    item,
		Reviews: reviews,
		Average: item.AverageRating,
	}, nil
}
