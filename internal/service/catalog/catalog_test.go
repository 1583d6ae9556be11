package catalog

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mvoronin/laptopshop/internal/config"
	"github.com/mvoronin/laptopshop/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB) (models.Category, models.Category) {
	t.Helper()
	laptops := models.Category{Name: "Laptops", Slug: "laptops"}
	tablets := models.Category{Name: "Tablets", Slug: "tablets"}
	require.NoError(t, db.Create(&laptops).Error)
	require.NoError(t, db.Create(&tablets).Error)

	items := []models.Item{
		{Name: "thinkpad", Slug: "thinkpad", CategoryID: laptops.ID, SellingPrice: 100, Active: true},
		{Name: "xps", Slug: "xps", CategoryID: laptops.ID, SellingPrice: 120, Active: true},
		{Name: "retired", Slug: "retired", CategoryID: laptops.ID, SellingPrice: 10, Active: false},
		{Name: "galaxy tab", Slug: "galaxy-tab", CategoryID: tablets.ID, SellingPrice: 60, Active: true},
	}
	for i := range items {
		require.NoError(t, db.Create(&items[i]).Error)
	}
	return laptops, tablets
}

func TestActiveItemsSkipsInactive(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	seed(t, db)

	total, items, err := svc.ActiveItems(context.Background(), "", 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	for _, item := range items {
		require.True(t, item.Active)
	}
}

func TestActiveItemsByCategory(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	seed(t, db)

	total, items, err := svc.ActiveItems(context.Background(), "tablets", 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	require.Equal(t, "galaxy tab", items[0].Name)

	_, _, err = svc.ActiveItems(context.Background(), "phones", 0, 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCategoriesSorted(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	seed(t, db)

	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	require.Equal(t, "Laptops", categories[0].Name)
	require.Equal(t, "Tablets", categories[1].Name)
}

func TestItemBySlug(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	seed(t, db)

	detail, err := svc.ItemBySlug(context.Background(), "thinkpad")
	require.NoError(t, err)
	require.Equal(t, "thinkpad", detail.Item.Name)
	require.Empty(t, detail.Reviews)
	require.Zero(t, detail.Average)

	_, err = svc.ItemBySlug(context.Background(), "no-such-slug")
	require.ErrorIs(t, err, ErrNotFound)
}
