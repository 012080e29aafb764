package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/pos/cart/internal/payment"
	"github.com/Alturino/pos/cart/internal/service"
	"github.com/Alturino/pos/cart/internal/session"
	"github.com/Alturino/pos/cart/pkg/engine"
	"github.com/Alturino/pos/cart/pkg/tax"
	"github.com/Alturino/pos/internal/auth"
	inErrors "github.com/Alturino/pos/internal/errors"
	"github.com/Alturino/pos/internal/validate"
	saleRequest "github.com/Alturino/pos/sale/pkg/request"
	saleResponse "github.com/Alturino/pos/sale/pkg/response"
)

type catalogStub map[uuid.UUID]engine.Snapshot

func (s catalogStub) GetSnapshot(_ context.Context, _ uuid.UUID, id uuid.UUID) (engine.Snapshot, error) {
	snapshot, ok := s[id]
	if !ok {
		return engine.Snapshot{}, inErrors.ErrProductNotFound
	}
	return snapshot, nil
}

func (s catalogStub) CurrentStock(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	stock := map[uuid.UUID]int{}
	for _, id := range ids {
		stock[id] = s[id].AvailableStock
	}
	return stock, nil
}

type recorderStub struct{}

func (recorderStub) RecordSale(_ context.Context, param saleRequest.RecordSale) (saleResponse.Sale, error) {
	return saleResponse.Sale{ID: uuid.New(), TenantID: param.TenantID}, nil
}

type harness struct {
	router  *mux.Router
	claims  auth.Claims
	product uuid.UUID
}

func newHarness(t *testing.T) harness {
	t.Helper()
	product := uuid.New()
	svc := service.NewCartService(
		session.NewStore(),
		catalogStub{product: {UnitPrice: decimal.NewFromInt(1005), AvailableStock: 2}},
		recorderStub{},
		payment.NewManualTerminal(),
		nil,
		tax.DefaultTable(),
		tax.CountryChile,
	)
	router := mux.NewRouter()
	AttachCartController(router, svc, validate.New())
	return harness{
		router:  router,
		claims:  auth.Claims{TenantID: uuid.New(), TerminalID: "caja-1"},
		product: product,
	}
}

func (h harness) do(t *testing.T, method string, path string, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if h.claims.TenantID != uuid.Nil {
		req = req.WithContext(auth.AttachClaimsToContext(req.Context(), h.claims))
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	res := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return rec.Code, res
}

func (h harness) createCart(t *testing.T) string {
	t.Helper()
	code, res := h.do(t, http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, code)
	cart := res["data"].(map[string]interface{})["cart"].(map[string]interface{})
	return cart["id"].(string)
}

func TestCheckoutFlow(t *testing.T) {
	h := newHarness(t)
	cartID := h.createCart(t)

	code, _ := h.do(t, http.MethodPost, "/carts/"+cartID+"/items", `{"product_id":"`+h.product.String()+`"}`)
	require.Equal(t, http.StatusOK, code)

	code, res := h.do(t, http.MethodPut, "/carts/"+cartID+"/items/"+h.product.String(), `{"quantity":3}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, float64(2), res["data"].(map[string]interface{})["available"])

	code, res = h.do(t, http.MethodGet, "/carts/"+cartID+"/totals", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1200", res["data"].(map[string]interface{})["payable"])

	code, res = h.do(t, http.MethodPost, "/carts/"+cartID+"/checkout", `{"method":"cash","tendered":"1000"}`)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "200", res["data"].(map[string]interface{})["missing"])

	code, _ = h.do(t, http.MethodPost, "/carts/"+cartID+"/checkout", `{"method":"card"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = h.do(t, http.MethodPost, "/carts/"+cartID+"/checkout", `{"method":"cash","tendered":"2000"}`)
	require.Equal(t, http.StatusCreated, code)
	checkout := res["data"].(map[string]interface{})["checkout"].(map[string]interface{})
	assert.Equal(t, "800", checkout["change"])

	code, _ = h.do(t, http.MethodGet, "/carts/"+cartID, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCartRequestErrors(t *testing.T) {
	h := newHarness(t)
	cartID := h.createCart(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{
			name:           "given malformed cart id should be bad request",
			method:         http.MethodGet,
			path:           "/carts/not-a-uuid",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "given unknown cart should be not found",
			method:         http.MethodGet,
			path:           "/carts/" + uuid.NewString(),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "given unknown product should be not found",
			method:         http.MethodPost,
			path:           "/carts/" + cartID + "/items",
			body:           `{"product_id":"` + uuid.NewString() + `"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "given empty cart checkout should be bad request",
			method:         http.MethodPost,
			path:           "/carts/" + cartID + "/checkout",
			body:           `{"method":"cash","tendered":"0"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "given unknown payment method should be bad request",
			method:         http.MethodPost,
			path:           "/carts/" + cartID + "/checkout",
			body:           `{"method":"cheque"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := h.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, code)
			assert.Equal(t, "failed", res["status"])
		})
	}
}

func TestSetQuantityRejectsMalformedQuantity(t *testing.T) {
	h := newHarness(t)
	cartID := h.createCart(t)
	code, _ := h.do(t, http.MethodPost, "/carts/"+cartID+"/items", `{"product_id":"`+h.product.String()+`"}`)
	require.Equal(t, http.StatusOK, code)

	for _, body := range []string{`{"quantity":1.5}`, `{"quantity":"two"}`, `{}`} {
		t.Run(body, func(t *testing.T) {
			code, res := h.do(t, http.MethodPut, "/carts/"+cartID+"/items/"+h.product.String(), body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, res["message"], engine.ErrInvalidQuantity.Error())
		})
	}

	code, res := h.do(t, http.MethodGet, "/carts/"+cartID, "")
	require.Equal(t, http.StatusOK, code)
	cart := res["data"].(map[string]interface{})["cart"].(map[string]interface{})
	line := cart["lines"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(1), line["quantity"])
}

func TestCartRequiresClaims(t *testing.T) {
	h := newHarness(t)
	h.claims = auth.Claims{}

	code, _ := h.do(t, http.MethodPost, "/carts", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}
