package openfoodfacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	productErrors "github.com/Alturino/pos/product/internal/errors"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name         string
		barcode      string
		status       int
		body         string
		expectedName string
		expectedErr  error
	}{
		{
			name:         "given known barcode should return suggestion",
			barcode:      "7802800533551",
			status:       http.StatusOK,
			body:         `{"code":"7802800533551","status":1,"product":{"product_name":" Galletas Tritón ","brands":"McKay","quantity":"126 g"}}`,
			expectedName: "Galletas Tritón",
		},
		{
			name:        "given status zero should return not found",
			barcode:     "0000000000000",
			status:      http.StatusOK,
			body:        `{"code":"0000000000000","status":0}`,
			expectedErr: productErrors.ErrBarcodeNotFound,
		},
		{
			name:        "given 404 should return not found",
			barcode:     "123",
			status:      http.StatusNotFound,
			body:        `{}`,
			expectedErr: productErrors.ErrBarcodeNotFound,
		},
		{
			name:        "given upstream failure should return unavailable",
			barcode:     "123",
			status:      http.StatusBadGateway,
			body:        ``,
			expectedErr: productErrors.ErrLookupUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v2/product/"+tt.barcode+".json", r.URL.Path)
				assert.Equal(t, productFields, r.URL.Query().Get("fields"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL+"/", time.Second)
			suggestion, err := client.Lookup(context.Background(), tt.barcode)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedName, suggestion.Name)
			assert.Equal(t, "McKay", suggestion.Brand)
			assert.Equal(t, tt.barcode, suggestion.Barcode)
		})
	}
}
