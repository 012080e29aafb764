package publisher

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventSaleRecorded      = "SaleRecorded"
	RoutingKeySaleRecorded = "sale.recorded.v1"
	saleRecordedSchema     = "pos.sale.recorded.v1"
)

type EventEnvelope[T any] struct {
	OccurredAt    time.Time `json:"occurredAt"`
	Payload       T         `json:"payload"`
	EventName     string    `json:"eventName"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Schema        string    `json:"schema"`
	EventVersion  int       `json:"eventVersion"`
}

type SaleRecordedItem struct {
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	ProductID uuid.UUID       `json:"productId"`
}

type SaleRecordedPayload struct {
	RecordedAt    time.Time          `json:"recordedAt"`
	TerminalID    string             `json:"terminalId"`
	CountryCode   string             `json:"countryCode"`
	PaymentMethod string             `json:"paymentMethod"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Vat           decimal.Decimal    `json:"vat"`
	RoundedTotal  decimal.Decimal    `json:"roundedTotal"`
	Items         []SaleRecordedItem `json:"items"`
	SaleID        uuid.UUID          `json:"saleId"`
	TenantID      uuid.UUID          `json:"tenantId"`
}

type SaleRecordedEvent = EventEnvelope[SaleRecordedPayload]
