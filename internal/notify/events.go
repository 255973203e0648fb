package notify

import (
	"encoding/json"
	"time"
)

const (
	EventPriceChanged = "PriceChanged"
	EventRestocked    = "Restocked"
)

const (
	TopicPriceChanged = "catalog.price.changed"
	TopicRestocked    = "catalog.restocked"
)

// Partition key = product_id, so events for one product stay ordered.
func PartitionKey(productID string) []byte { return []byte(productID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // product_id
	Payload       json.RawMessage `json:"payload"`
}

type PriceChangedPayload struct {
	ProductID     string `json:"product_id"`
	OldPriceCents int    `json:"old_price_cents"`
	NewPriceCents int    `json:"new_price_cents"`
}

type RestockedPayload struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}
