package models

import (
	"strings"
	"time"
)

type Category struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name  string `gorm:"not null"                 json:"name"`
	Slug  string `gorm:"unique;not null"          json:"slug"`
	Items []Item `gorm:"foreignKey:CategoryID"    json:"items,omitempty"`
}

type Item struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"not null"                 json:"name"`
	Slug          string    `gorm:"unique;not null"          json:"slug"`
	CategoryID    uint      `gorm:"index;not null"           json:"category_id"`
	Image         string    `gorm:"default:default.png"      json:"image"`
	MarkedPrice   uint      `gorm:"not null;default:0"       json:"marked_price"`
	SellingPrice  uint      `gorm:"not null;default:0"       json:"selling_price"`
	Warranty      string    `json:"warranty,omitempty"`
	Description   string    `json:"description,omitempty"`
	AverageRating float64   `gorm:"not null;default:0"       json:"average_rating"`
	Active        bool      `gorm:"not null;default:true"    json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	ItemID    uint      `gorm:"index;not null"           json:"item_id"`
	Rate      uint      `gorm:"not null;default:1"       json:"rate"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

// FullName is what ends up on Order.CreatedBy at checkout.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Customer is a one-to-one wrapper around a User; carts and orders
// hang off the customer, not the raw identity.
type Customer struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null"     json:"user_id"`
	User   User `json:"user,omitempty"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Token     string `gorm:"unique;not null"          json:"token"`
	UserID    uint   `gorm:"index;not null"           json:"user_id"`
	ExpiresAt int64  `gorm:"not null"                 json:"expires_at"`
	Revoked   bool   `gorm:"default:false"            json:"revoked"`
}

// Cart is session-scoped; CustomerID stays NULL until a logged-in
// customer claims it. Total always equals the sum of line subtotals.
type Cart struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID *uint      `gorm:"index"                    json:"customer_id,omitempty"`
	Total      uint       `gorm:"not null;default:0"       json:"total"`
	CreatedAt  time.Time  `json:"created_at"`
	Items      []CartItem `gorm:"foreignKey:CartID"        json:"items,omitempty"`
}

// CartItem snapshots the item's selling price at add time in Rate;
// Subtotal is Rate * Quantity.
type CartItem struct {
	ID       uint `gorm:"primaryKey;autoIncrement"  json:"id"`
	CartID   uint `gorm:"index;not null"            json:"cart_id"`
	ItemID   uint `gorm:"not null"                  json:"item_id"`
	Item     Item `json:"item,omitempty"`
	Quantity uint `gorm:"not null;check:quantity>0" json:"quantity"`
	Rate     uint `gorm:"not null;default:0"        json:"rate"`
	Subtotal uint `gorm:"not null;default:0"        json:"subtotal"`
}

type OrderStatus string

const (
	StatusReceived   OrderStatus = "Received"
	StatusProcessing OrderStatus = "Processing"
	StatusCompleted  OrderStatus = "Completed"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Order is an immutable snapshot of a cart at checkout time. The unique
// index on CartID is what enforces at-most-one-order-per-cart.
type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    uint        `gorm:"uniqueIndex;not null"     json:"cart_id"`
	Cart      Cart        `json:"cart,omitempty"`
	CreatedBy string      `gorm:"not null"                 json:"created_by"`
	Phone     string      `gorm:"not null"                 json:"phone"`
	Address   string      `gorm:"not null"                 json:"address"`
	Status    OrderStatus `gorm:"not null"                 json:"status"`
	Subtotal  uint        `gorm:"not null;default:0"       json:"subtotal"`
	Total     uint        `gorm:"not null;default:0"       json:"total"`
	CreatedAt time.Time   `json:"created_at"`
}
