package sales

import (
	"encoding/json"
	"time"
)

const (
	EventSaleRecorded = "SaleRecorded"

	TopicSaleRecorded = "sale.recorded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // sale_id
	Payload       json.RawMessage `json:"payload"`
}

type SaleRecordedPayload struct {
	SaleID     string `json:"sale_id"`
	ProductID  string `json:"product_id"`
	SoldBy     string `json:"sold_by"`
	Quantity   int    `json:"quantity"`
	UnitCents  int64  `json:"unit_cents"`
	TotalCents int64  `json:"total_cents"`
}

// Partition key = sale_id, supaya event 1 sale maintain urutan.
func PartitionKey(saleID string) []byte { return []byte(saleID) }
