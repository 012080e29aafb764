package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/pos/internal/errors"
)

type payload struct {
	Name string `validate:"required" json:"name"`
}

func TestDecodeAndValidate(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "given valid body should decode", body: `{"name":"caja"}`},
		{name: "given malformed json should fail", body: `{"name":`, wantErr: true},
		{name: "given missing required field should fail", body: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			dst := payload{}
			err := DecodeAndValidate(r, validate, &dst)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "caja", dst.Name)
		})
	}
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"cartId": id.String()})
	parsed, err := PathUUID(r, "cartId")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"cartId": "nope"})
	_, err = PathUUID(r, "cartId")
	assert.ErrorIs(t, err, inErrors.ErrInvalidPathParam)
}

func TestQueryInt32(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=20&offset=x", nil)

	limit, err := QueryInt32(r, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, int32(20), limit)

	page, err := QueryInt32(r, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), page)

	_, err = QueryInt32(r, "offset", 0)
	assert.Error(t, err)
}
