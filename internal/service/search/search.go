// Package search answers item queries. With Elasticsearch configured
// it runs a multi_match against the item index; otherwise it falls back
// to a case-insensitive substring filter in SQL, which is also the
// behavior the catalog guarantees.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/models"
)

type Service struct {
	DB    *gorm.DB
	ES    *elasticsearch.Client
	Index string
}

func (s *Service) Search(ctx context.Context, query string, from, size int) (int64, []models.Item, error) {
	if s.ES != nil {
		return s.searchES(ctx, query, from, size)
	}
	return s.searchSQL(ctx, query, from, size)
}

func (s *Service) searchSQL(ctx context.Context, query string, from, size int) (int64, []models.Item, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	q := s.DB.WithContext(ctx).Model(&models.Item{}).
		Where("active = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Item
	if err := q.Order("id DESC").Offset(from).Limit(size).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (s *Service) searchES(ctx context.Context, query string, from, size int) (int64, []models.Item, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: es request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: es response: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Item `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode response: %w", err)
	}

	items := make([]models.Item, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source
	}
	return r.Hits.Total.Value, items, nil
}
