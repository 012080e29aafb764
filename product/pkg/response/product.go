package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/pkg/engine"
)

type Product struct {
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Barcode   string          `json:"barcode,omitempty"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	ID        uuid.UUID       `json:"id"`
	TenantID  uuid.UUID       `json:"tenant_id"`
}

func (p Product) Snapshot() engine.Snapshot {
	return engine.Snapshot{UnitPrice: p.Price, AvailableStock: p.Stock}
}

const (
	SourceCatalog       = "catalog"
	SourceOpenFoodFacts = "openfoodfacts"
)

// BarcodeLookup carries either a catalog product or, when the barcode is unknown
// to the tenant, a suggestion to prefill the product form.
type BarcodeLookup struct {
	Product    *Product           `json:"product,omitempty"`
	Suggestion *ProductSuggestion `json:"suggestion,omitempty"`
	Source     string             `json:"source"`
}

type ProductSuggestion struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Quantity string `json:"quantity,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}
