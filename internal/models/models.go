package models

import (
	"time"
)

type User struct {
	ID           string    `gorm:"primaryKey"            json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	FullName     string    `gorm:"not null"              json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	IsAdmin      bool      `gorm:"default:false"         json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID             string     `gorm:"primaryKey"    json:"id"`
	Name           string     `gorm:"not null"      json:"name"`
	Brand          string     `gorm:"index"         json:"brand"`
	Category       string     `gorm:"index"         json:"category"`
	Price          float64    `gorm:"not null"      json:"price"`
	OriginalPrice  *float64   `json:"original_price,omitempty"`
	Description    string     `json:"description"`
	Specifications JSONMap    `gorm:"type:text"     json:"specifications"`
	Images         StringList `gorm:"type:text"     json:"images"`
	Stock          int        `gorm:"default:0"     json:"stock"`
	Rating         float64    `gorm:"default:0"     json:"rating"`
	ReviewCount    int        `gorm:"default:0"     json:"review_count"`
	Featured       bool       `gorm:"default:false" json:"featured"`
	CreatedAt      time.Time  `json:"created_at"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart holds one row per user; line items live inside the row so the
// whole cart is read and written as a unit.
type Cart struct {
	ID        string    `gorm:"primaryKey"           json:"id"`
	UserID    string    `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     CartItems `gorm:"type:text"            json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is a snapshot of the product at order time, never live-linked.
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

type Order struct {
	ID              string     `gorm:"primaryKey"      json:"id"`
	UserID          string     `gorm:"index;not null"  json:"user_id"`
	Items           OrderItems `gorm:"type:text"       json:"items"`
	TotalAmount     float64    `gorm:"not null"        json:"total_amount"`
	Status          string     `gorm:"default:pending" json:"status"`
	ShippingAddress JSONMap    `gorm:"type:text"       json:"shipping_address"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

type Review struct {
	ID        string    `gorm:"primaryKey"     json:"id"`
	ProductID string    `gorm:"index;not null" json:"product_id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `gorm:"not null"       json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
