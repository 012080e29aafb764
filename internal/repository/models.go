package repository

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Product struct {
	ID        uuid.UUID          `json:"id"`
	TenantID  uuid.UUID          `json:"tenant_id"`
	Barcode   pgtype.Text        `json:"barcode"`
	Name      string             `json:"name"`
	Brand     string             `json:"brand"`
	Price     pgtype.Numeric     `json:"price"`
	Stock     int32              `json:"stock"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type Sale struct {
	ID              uuid.UUID          `json:"id"`
	TenantID        uuid.UUID          `json:"tenant_id"`
	TerminalID      string             `json:"terminal_id"`
	CountryCode     string             `json:"country_code"`
	PaymentMethod   string             `json:"payment_method"`
	Subtotal        pgtype.Numeric     `json:"subtotal"`
	Vat             pgtype.Numeric     `json:"vat"`
	TotalWithVat    pgtype.Numeric     `json:"total_with_vat"`
	RoundedTotal    pgtype.Numeric     `json:"rounded_total"`
	RoundingDelta   pgtype.Numeric     `json:"rounding_delta"`
	Tendered        pgtype.Numeric     `json:"tendered"`
	ChangeAmount    pgtype.Numeric     `json:"change_amount"`
	AuthorizationID string             `json:"authorization_id"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
}

type SaleItem struct {
	ID        uuid.UUID      `json:"id"`
	SaleID    uuid.UUID      `json:"sale_id"`
	ProductID uuid.UUID      `json:"product_id"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	Quantity  int32          `json:"quantity"`
	LineTotal pgtype.Numeric `json:"line_total"`
}
