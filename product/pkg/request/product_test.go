package request

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Alturino/pos/internal/validate"
)

func TestStockBounds(t *testing.T) {
	v := validate.New()
	ptr := func(n int) *int { return &n }

	tests := []struct {
		name    string
		input   interface{}
		wantErr bool
	}{
		{
			name:  "insert with maximum storable stock",
			input: InsertProduct{Name: "Leche entera", Price: decimal.NewFromInt(1005), Stock: math.MaxInt32},
		},
		{
			name:    "insert with stock above int32",
			input:   InsertProduct{Name: "Leche entera", Price: decimal.NewFromInt(1005), Stock: math.MaxInt32 + 1},
			wantErr: true,
		},
		{
			name:  "update to zero stock",
			input: UpdateStock{Stock: ptr(0)},
		},
		{
			name:    "update with stock above int32",
			input:   UpdateStock{Stock: ptr(math.MaxInt32 + 4)},
			wantErr: true,
		},
		{
			name:    "update with negative stock",
			input:   UpdateStock{Stock: ptr(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
