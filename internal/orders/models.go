package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/S-Muthumalai/E-Commerce-front/internal/catalog"
)

type Order struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	TotalCents      int       `json:"total_cents"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	DeliveryDate    time.Time `json:"delivery_date"`
	TrackingNumber  string    `json:"tracking_number"`
	MiddlemanID     *string   `json:"middleman_id,omitempty"`
}

// OrderItem rows are immutable after creation; PriceCents is the unit
// price frozen at purchase time, decoupled from the live catalog price.
type OrderItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int    `json:"price_cents"`
}

type ItemWithProduct struct {
	OrderItem
	Product catalog.Product `json:"product"`
}

type OrderWithItems struct {
	Order
	Items []ItemWithProduct `json:"items"`
}

type AdminOrder struct {
	OrderWithItems
	Username string `json:"username"`
}

// ItemInput is one checkout line; PriceCents is the caller's frozen
// price snapshot from the time the cart was presented.
type ItemInput struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

var (
	ErrNotFound    = errors.New("order not found")
	ErrNotAssigned = errors.New("order not assigned to this middleman")
)

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
