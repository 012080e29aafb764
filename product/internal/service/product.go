package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/cart/pkg/engine"
	inErrors "github.com/Alturino/pos/internal/errors"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/internal/repository"
	"github.com/Alturino/pos/internal/retry"
	"github.com/Alturino/pos/product/internal/cache"
	productErrors "github.com/Alturino/pos/product/internal/errors"
	"github.com/Alturino/pos/product/internal/otel"
	"github.com/Alturino/pos/product/pkg/request"
	"github.com/Alturino/pos/product/pkg/response"
)

const defaultPageSize = 50

type BarcodeLookup interface {
	Lookup(c context.Context, barcode string) (response.ProductSuggestion, error)
}

type ProductService struct {
	queries   *repository.Queries
	cache     *cache.ProductCache
	lookup    BarcodeLookup
	retryOpts []retry.Option
}

func NewProductService(
	queries *repository.Queries,
	cache *cache.ProductCache,
	lookup BarcodeLookup,
	retryOpts ...retry.Option,
) *ProductService {
	return &ProductService{queries: queries, cache: cache, lookup: lookup, retryOpts: retryOpts}
}

// checkStock keeps stock within the int32 column so the conversion never wraps.
func checkStock(stock int) error {
	switch {
	case stock < 0:
		return productErrors.ErrNegativeStock
	case stock > math.MaxInt32:
		return fmt.Errorf("stock=%d %w", stock, productErrors.ErrStockOutOfRange)
	}
	return nil
}

func (svc *ProductService) InsertProduct(
	c context.Context,
	tenantID uuid.UUID,
	param request.InsertProduct,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService InsertProduct").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeyBarcode, param.Barcode).
		Logger()

	if err := checkStock(param.Stock); err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	if param.Barcode != "" {
		logger = logger.With().Str(log.KeyProcess, "finding product by barcode").Logger()
		logger.Trace().Msg("finding product by barcode")
		_, err := svc.queries.FindProductByBarcode(c, repository.FindProductByBarcodeParams{
			TenantID: tenantID,
			Barcode:  param.Barcode,
		})
		if err == nil {
			err = fmt.Errorf("barcode=%s %w", param.Barcode, inErrors.ErrProductExists)
			inOtel.RecordError(err, span)
			logger.Info().Err(err).Msg(err.Error())
			return response.Product{}, err
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("failed finding product by barcode with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Product{}, err
		}
		logger.Trace().Msg("product is not exist in database")
	}

	logger = logger.With().Str(log.KeyProcess, "inserting product to database").Logger()
	logger.Trace().Msg("inserting product to database")
	inserted, err := svc.queries.InsertProduct(c, repository.InsertProductParams{
		TenantID: tenantID,
		Barcode:  repository.Text(param.Barcode),
		Name:     param.Name,
		Brand:    param.Brand,
		Price:    repository.Numeric(param.Price),
		Stock:    int32(param.Stock),
	})
	if err != nil {
		err = fmt.Errorf("failed inserting product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	product := inserted.Response()
	logger = logger.With().Any(log.KeyProduct, product).Logger()
	logger.Info().Msg("inserted product to database")

	logger = logger.With().Str(log.KeyProcess, "inserting product to cache").Logger()
	if err = svc.cache.Set(c, product); err != nil {
		logger.Warn().Err(err).Msg("failed inserting product to cache")
	}

	return product, nil
}

func (svc *ProductService) FindProducts(
	c context.Context,
	tenantID uuid.UUID,
	param request.FindProducts,
) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProducts").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeyProcess, "finding products in database").
		Logger()

	if param.Limit == 0 {
		param.Limit = defaultPageSize
	}

	logger.Trace().Msg("finding products in database")
	products, err := svc.queries.FindProducts(c, repository.FindProductsParams{
		TenantID: tenantID,
		Name:     param.Name,
		Limit:    param.Limit,
		Offset:   param.Offset,
	})
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyProducts, len(products)).Msg("found products in database")

	res := make([]response.Product, 0, len(products))
	for _, p := range products {
		res = append(res, p.Response())
	}
	return res, nil
}

// FindProductById reads through the cache and repopulates it on a miss.
func (svc *ProductService) FindProductById(
	c context.Context,
	tenantID uuid.UUID,
	productID uuid.UUID,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProductById").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeyProductID, productID.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product in cache").Logger()
	logger.Trace().Msg("finding product in cache")
	product, err := svc.cache.Get(c, tenantID, productID)
	if err == nil {
		logger.Trace().Msg("found product in cache")
		return product, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn().Err(err).Msg("failed finding product in cache, falling back to database")
	}

	logger = logger.With().Str(log.KeyProcess, "finding product in database").Logger()
	logger.Trace().Msg("finding product in database")
	found, err := svc.queries.FindProductById(c, repository.FindProductByIdParams{
		TenantID: tenantID,
		ID:       productID,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("productId=%s %w", productID, inErrors.ErrProductNotFound)
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed finding product in database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	product = found.Response()
	logger.Trace().Msg("found product in database")

	if err = svc.cache.Set(c, product); err != nil {
		logger.Warn().Err(err).Msg("failed inserting product to cache")
	}
	return product, nil
}

func (svc *ProductService) GetSnapshot(
	c context.Context,
	tenantID uuid.UUID,
	productID uuid.UUID,
) (engine.Snapshot, error) {
	c, span := otel.Tracer.Start(c, "ProductService GetSnapshot")
	defer span.End()

	product, err := svc.FindProductById(c, tenantID, productID)
	if err != nil {
		inOtel.RecordError(err, span)
		return engine.Snapshot{}, err
	}
	return product.Snapshot(), nil
}

// CurrentStock always reads the database. Products missing for the tenant are
// reported with zero stock.
func (svc *ProductService) CurrentStock(
	c context.Context,
	tenantID uuid.UUID,
	productIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	c, span := otel.Tracer.Start(c, "ProductService CurrentStock")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService CurrentStock").
		Str(log.KeyTenantID, tenantID.String()).
		Any(log.KeyProductIDs, productIDs).
		Str(log.KeyProcess, "finding current stock").
		Logger()

	logger.Trace().Msg("finding current stock")
	products, err := svc.queries.FindProductsByIds(c, repository.FindProductsByIdsParams{
		TenantID: tenantID,
		Ids:      productIDs,
	})
	if err != nil {
		err = fmt.Errorf("failed finding current stock with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	stock := make(map[uuid.UUID]int, len(productIDs))
	for _, id := range productIDs {
		stock[id] = 0
	}
	for _, p := range products {
		stock[p.ID] = int(p.Stock)
	}
	logger.Trace().Any(log.KeyProductStock, stock).Msg("found current stock")
	return stock, nil
}

// UpdateStock publishes the new stock to the cache first so terminals see it
// immediately, confirms it in the database with retries and restores the previous
// cached snapshot when the database write fails.
func (svc *ProductService) UpdateStock(
	c context.Context,
	tenantID uuid.UUID,
	productID uuid.UUID,
	stock int,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService UpdateStock")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService UpdateStock").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeyProductID, productID.String()).
		Int(log.KeyProductStock, stock).
		Logger()

	if err := checkStock(stock); err != nil {
		inOtel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	previous, err := svc.FindProductById(c, tenantID, productID)
	if err != nil {
		inOtel.RecordError(err, span)
		return response.Product{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "applying stock to cache").Logger()
	logger.Trace().Msg("applying stock to cache")
	optimistic := previous
	optimistic.Stock = stock
	optimistic.UpdatedAt = time.Now().UTC()
	if err = svc.cache.Set(c, optimistic); err != nil {
		logger.Warn().Err(err).Msg("failed applying stock to cache")
	}

	logger = logger.With().Str(log.KeyProcess, "confirming stock in database").Logger()
	logger.Trace().Msg("confirming stock in database")
	opts := append([]retry.Option{
		retry.WithNotify(func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("retryIn", next).Msg("retrying stock update")
		}),
	}, svc.retryOpts...)
	updated, err := retry.Do(c, func(c context.Context) (repository.Product, error) {
		p, err := svc.queries.UpdateProductStock(c, repository.UpdateProductStockParams{
			TenantID: tenantID,
			ID:       productID,
			Stock:    int32(stock),
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return p, retry.Permanent(fmt.Errorf("productId=%s %w", productID, inErrors.ErrProductNotFound))
		}
		return p, err
	}, opts...)
	if err != nil {
		err = fmt.Errorf("failed confirming stock in database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())

		logger = logger.With().Str(log.KeyProcess, "reverting stock in cache").Logger()
		logger.Info().Msg("reverting stock in cache")
		if rerr := svc.cache.Set(c, previous); rerr != nil {
			logger.Error().Err(rerr).Msg("failed reverting stock in cache, evicting")
			_ = svc.cache.Delete(c, tenantID, productID)
		}
		logger.Info().Msg("reverted stock in cache")
		return response.Product{}, err
	}
	product := updated.Response()
	logger.Info().Msg("confirmed stock in database")

	if err = svc.cache.Set(c, product); err != nil {
		logger.Warn().Err(err).Msg("failed refreshing product in cache")
	}
	return product, nil
}

func (svc *ProductService) LookupBarcode(
	c context.Context,
	tenantID uuid.UUID,
	barcode string,
) (response.BarcodeLookup, error) {
	c, span := otel.Tracer.Start(c, "ProductService LookupBarcode")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService LookupBarcode").
		Str(log.KeyTenantID, tenantID.String()).
		Str(log.KeyBarcode, barcode).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding product by barcode").Logger()
	logger.Trace().Msg("finding product by barcode")
	found, err := svc.queries.FindProductByBarcode(c, repository.FindProductByBarcodeParams{
		TenantID: tenantID,
		Barcode:  barcode,
	})
	if err == nil {
		product := found.Response()
		logger.Info().Msg("found product in catalog")
		return response.BarcodeLookup{Product: &product, Source: response.SourceCatalog}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("failed finding product by barcode with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.BarcodeLookup{}, err
	}
	if svc.lookup == nil {
		err = fmt.Errorf("barcode=%s %w", barcode, inErrors.ErrProductNotFound)
		logger.Info().Err(err).Msg(err.Error())
		return response.BarcodeLookup{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "looking up barcode upstream").Logger()
	logger.Trace().Msg("looking up barcode upstream")
	suggestion, err := svc.lookup.Lookup(c, barcode)
	if errors.Is(err, productErrors.ErrBarcodeNotFound) {
		err = fmt.Errorf("barcode=%s %w", barcode, inErrors.ErrProductNotFound)
		logger.Info().Err(err).Msg(err.Error())
		return response.BarcodeLookup{}, err
	}
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.BarcodeLookup{}, err
	}
	logger.Info().Msg("looked up barcode upstream")

	return response.BarcodeLookup{Suggestion: &suggestion, Source: response.SourceOpenFoodFacts}, nil
}
