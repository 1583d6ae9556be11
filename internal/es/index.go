package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"
	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/models"
)

// ItemIndex is the index the search service queries.
const ItemIndex = "items"

// SyncItems pushes every active catalog item into the search index.
// Catalog writes happen outside this service, so the index is refreshed
// wholesale at startup rather than kept in lockstep per write.
func SyncItems(ctx context.Context, client *elasticsearch.Client, db *gorm.DB) error {
	var items []models.Item
	if err := db.WithContext(ctx).Where("active = ?", true).Find(&items).Error; err != nil {
		return fmt.Errorf("es: loading items for indexing: %w", err)
	}

	for _, item := range items {
		doc, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("es: marshal item %d: %w", item.ID, err)
		}
		res, err := client.Index(
			ItemIndex,
			bytes.NewReader(doc),
			client.Index.WithContext(ctx),
			client.Index.WithDocumentID(fmt.Sprint(item.ID)),
		)
		if err != nil {
			return fmt.Errorf("es: index item %d: %w", item.ID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("es: index item %d: %s", item.ID, res.Status())
		}
	}
	return nil
}
