package cart

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

func seedItem(t *testing.T, db *gorm.DB, name string, price uint) models.Item {
	t.Helper()
	category := models.Category{Name: "Laptops", Slug: "laptops-" + name}
	require.NoError(t, db.Create(&category).Error)
	item := models.Item{
		Name:         name,
		Slug:         name,
		CategoryID:   category.ID,
		SellingPrice: price,
		MarkedPrice:  price + 10,
		Active:       true,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func sumOfLines(t *testing.T, db *gorm.DB, cartID uint) uint {
	t.Helper()
	var total uint
	require.NoError(t, db.Model(&models.CartItem{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(SUM(subtotal), 0)").
		Scan(&total).Error)
	return total
}

func cartTotal(t *testing.T, db *gorm.DB, cartID uint) uint {
	t.Helper()
	var crt models.Cart
	require.NoError(t, db.First(&crt, cartID).Error)
	return crt.Total
}

func TestAddItemTwiceMergesLines(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	item := seedItem(t, db, "thinkpad", 50)
	crt, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, crt.ID, item.ID)
	require.NoError(t, err)
	line, err := svc.AddItem(ctx, crt.ID, item.ID)
	require.NoError(t, err)

	var lines []models.CartItem
	require.NoError(t, db.Where("cart_id = ?", crt.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	require.Equal(t, uint(2), line.Quantity)
	require.Equal(t, uint(50), line.Rate)
	require.Equal(t, uint(100), line.Subtotal)
	require.Equal(t, uint(100), cartTotal(t, db, crt.ID))
}

func TestAddUnknownItem(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	crt, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, crt.ID, 999)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, uint(0), cartTotal(t, db, crt.ID))
}

func TestDecreaseAtQuantityOneDeletesLine(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	item := seedItem(t, db, "xps", 70)
	crt, err := svc.Create(ctx)
	require.NoError(t, err)
	line, err := svc.AddItem(ctx, crt.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, uint(70), cartTotal(t, db, crt.ID))

	require.NoError(t, svc.DecreaseLine(ctx, crt.ID, line.ID))

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", crt.ID).Count(&count).Error)
	require.Zero(t, count)
	require.Equal(t, uint(0), cartTotal(t, db, crt.ID))
}

func TestRemoveLineSubtractsFullSubtotal(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	first := seedItem(t, db, "macbook", 100)
	second := seedItem(t, db, "zenbook", 30)
	crt, err := svc.Create(ctx)
	require.NoError(t, err)

	line, err := svc.AddItem(ctx, crt.ID, first.ID)
	require.NoError(t, err)
	require.NoError(t, svc.IncreaseLine(ctx, crt.ID, line.ID))
	_, err = svc.AddItem(ctx, crt.ID, second.ID)
	require.NoError(t, err)
	require.Equal(t, uint(230), cartTotal(t, db, crt.ID))

	require.NoError(t, svc.RemoveLine(ctx, crt.ID, line.ID))
	require.Equal(t, uint(30), cartTotal(t, db, crt.ID))
}

// The cart invariant: after any sequence of mutations the cart total
// equals the sum of the surviving line subtotals.
func TestTotalMatchesLinesAfterEveryMutation(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	a := seedItem(t, db, "item-a", 25)
	b := seedItem(t, db, "item-b", 40)
	crt, err := svc.Create(ctx)
	require.NoError(t, err)

	check := func() {
		t.Helper()
		require.Equal(t, sumOfLines(t, db, crt.ID), cartTotal(t, db, crt.ID))
	}

	lineA, err := svc.AddItem(ctx, crt.ID, a.ID)
	require.NoError(t, err)
	check()
	lineB, err := svc.AddItem(ctx, crt.ID, b.ID)
	require.NoError(t, err)
	check()
	require.NoError(t, svc.IncreaseLine(ctx, crt.ID, lineA.ID))
	check()
	require.NoError(t, svc.IncreaseLine(ctx, crt.ID, lineB.ID))
	check()
	require.NoError(t, svc.DecreaseLine(ctx, crt.ID, lineA.ID))
	check()
	require.NoError(t, svc.RemoveLine(ctx, crt.ID, lineB.ID))
	check()
	require.NoError(t, svc.Empty(ctx, crt.ID))
	check()
	require.Equal(t, uint(0), cartTotal(t, db, crt.ID))
}

func TestRateSnapshotSurvivesPriceChange(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	item := seedItem(t, db, "legion", 80)
	crt, err := svc.Create(ctx)
	require.NoError(t, err)
	line, err := svc.AddItem(ctx, crt.ID, item.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Item{}).Where("id = ?", item.ID).Update("selling_price", 90).Error)

	// Increase charges the snapshot rate, not the new price.
	require.NoError(t, svc.IncreaseLine(ctx, crt.ID, line.ID))
	require.Equal(t, uint(160), cartTotal(t, db, crt.ID))

	// A fresh add of the same item charges the current price.
	_, err = svc.AddItem(ctx, crt.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, uint(250), cartTotal(t, db, crt.ID))
}

func TestAdjustRejectsForeignLine(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	item := seedItem(t, db, "aspire", 20)
	mine, err := svc.Create(ctx)
	require.NoError(t, err)
	other, err := svc.Create(ctx)
	require.NoError(t, err)

	line, err := svc.AddItem(ctx, other.ID, item.ID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.IncreaseLine(ctx, mine.ID, line.ID), ErrNotFound)
	require.Equal(t, uint(20), cartTotal(t, db, other.ID))
}

func TestClaimOnlyTakesAnonymousCarts(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}
	ctx := context.Background()

	user := models.User{Username: "alice", PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(&user).Error)
	customer := models.Customer{UserID: user.ID}
	require.NoError(t, db.Create(&customer).Error)
	other := models.Customer{UserID: user.ID + 100}
	require.NoError(t, db.Create(&other).Error)

	crt, err := svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Claim(ctx, crt.ID, customer.ID))
	var got models.Cart
	require.NoError(t, db.First(&got, crt.ID).Error)
	require.NotNil(t, got.CustomerID)
	require.Equal(t, customer.ID, *got.CustomerID)

	// Already owned: a second claim by someone else is a no-op.
	require.NoError(t, svc.Claim(ctx, crt.ID, other.ID))
	require.NoError(t, db.First(&got, crt.ID).Error)
	require.Equal(t, customer.ID, *got.CustomerID)
}

func TestParseAction(t *testing.T) {
	for s, want := range map[string]Action{
		"increase": ActionIncrease,
		"decrease": ActionDecrease,
		"remove":   ActionRemove,
	} {
		got, err := ParseAction(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseAction("explode")
	require.ErrorIs(t, err, ErrUnknownAction)
	_, err = ParseAction("")
	require.ErrorIs(t, err, ErrUnknownAction)
}
