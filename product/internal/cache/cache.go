package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/product/internal/otel"
	"github.com/Alturino/pos/product/pkg/response"
)

const KeyProduct = "pos:products:%s:%s"

var ErrCacheMiss = errors.New("product not cached")

func ProductKey(tenantID, productID uuid.UUID) string {
	return fmt.Sprintf(KeyProduct, tenantID, productID)
}

// ProductCache keeps catalog snapshots as JSON strings keyed by tenant and product.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func (pc *ProductCache) Get(c context.Context, tenantID, productID uuid.UUID) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductCache Get")
	defer span.End()

	cacheKey := ProductKey(tenantID, productID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache Get").
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	logger.Trace().Msg("getting product from cache")
	raw, err := pc.client.Get(c, cacheKey).Result()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("product not in cache")
		return response.Product{}, ErrCacheMiss
	}
	if err != nil {
		err = fmt.Errorf("failed getting product from cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	product := response.Product{}
	if err = json.Unmarshal([]byte(raw), &product); err != nil {
		err = fmt.Errorf("failed unmarshaling cached product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("got product from cache")
	return product, nil
}

func (pc *ProductCache) Set(c context.Context, product response.Product) error {
	c, span := otel.Tracer.Start(c, "ProductCache Set")
	defer span.End()

	cacheKey := ProductKey(product.TenantID, product.ID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache Set").
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	raw, err := json.Marshal(product)
	if err != nil {
		err = fmt.Errorf("failed marshaling product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Trace().Msg("setting product to cache")
	if err = pc.client.Set(c, cacheKey, raw, pc.ttl).Err(); err != nil {
		err = fmt.Errorf("failed setting product to cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set product to cache")
	return nil
}

func (pc *ProductCache) Delete(c context.Context, tenantID uuid.UUID, productIDs ...uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "ProductCache Delete")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache Delete").
		Str(log.KeyTenantID, tenantID.String()).
		Any(log.KeyProductIDs, productIDs).
		Logger()

	if len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, ProductKey(tenantID, id))
	}

	logger.Trace().Msg("deleting products from cache")
	if err := pc.client.Del(c, keys...).Err(); err != nil {
		err = fmt.Errorf("failed deleting products from cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted products from cache")
	return nil
}
