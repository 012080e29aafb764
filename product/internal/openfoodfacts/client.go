// Package openfoodfacts looks up barcodes the tenant has not catalogued yet so the
// product form can be prefilled.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	inHttp "github.com/Alturino/pos/internal/http"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	productErrors "github.com/Alturino/pos/product/internal/errors"
	"github.com/Alturino/pos/product/internal/otel"
	"github.com/Alturino/pos/product/pkg/response"
)

const productFields = "product_name,brands,quantity,image_url"

type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

type productPayload struct {
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		Quantity    string `json:"quantity"`
		ImageURL    string `json:"image_url"`
	} `json:"product"`
	Code   string `json:"code"`
	Status int    `json:"status"`
}

func (cl *Client) Lookup(c context.Context, barcode string) (response.ProductSuggestion, error) {
	c, span := otel.Tracer.Start(c, "OpenFoodFacts Lookup")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OpenFoodFacts Lookup").
		Str(log.KeyBarcode, barcode).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "requesting product").Logger()
	logger.Info().Msg("requesting product")
	endpoint := fmt.Sprintf(
		"%s/api/v2/product/%s.json?fields=%s",
		cl.baseURL,
		url.PathEscape(barcode),
		productFields,
	)
	req, err := http.NewRequestWithContext(c, http.MethodGet, endpoint, nil)
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ProductSuggestion{}, err
	}
	req.Header.Set(inHttp.KeyHeaderRequestID, log.RequestIDFromContext(c))
	req.Header.Set("Accept", inHttp.ValueHeaderJson)

	resp, err := cl.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %w", productErrors.ErrLookupUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ProductSuggestion{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		logger.Info().Msg("barcode unknown")
		return response.ProductSuggestion{}, productErrors.ErrBarcodeNotFound
	case resp.StatusCode != http.StatusOK:
		err = fmt.Errorf("%w: status=%d", productErrors.ErrLookupUnavailable, resp.StatusCode)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ProductSuggestion{}, err
	}
	logger.Info().Msg("requested product")

	logger = logger.With().Str(log.KeyProcess, "decoding product").Logger()
	payload := productPayload{}
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		err = fmt.Errorf("failed decoding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.ProductSuggestion{}, err
	}
	if payload.Status != 1 {
		logger.Info().Msg("barcode unknown")
		return response.ProductSuggestion{}, productErrors.ErrBarcodeNotFound
	}
	logger.Info().Msg("decoded product")

	return response.ProductSuggestion{
		Barcode:  barcode,
		Name:     strings.TrimSpace(payload.Product.ProductName),
		Brand:    strings.TrimSpace(payload.Product.Brands),
		Quantity: payload.Product.Quantity,
		ImageURL: payload.Product.ImageURL,
	}, nil
}
