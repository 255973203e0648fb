package catalog

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceHistoryEntry rows are append-only; they are never updated or deleted.
type PriceHistoryEntry struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	PriceCents int       `json:"price_cents"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Patch carries the optional fields of a product update.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int    `json:"price_cents,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
	Category    *string `json:"category,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Change reports what an update did, for the notification call sites.
// Price and restock detection are independent of each other.
type Change struct {
	PriceChanged  bool
	OldPriceCents int
	NewPriceCents int
	Restocked     bool
}
