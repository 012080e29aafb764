package cmd

import (
	"context"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/internal/infra"
	"github.com/Alturino/pos/internal/log"
	"github.com/Alturino/pos/internal/repository"
	"github.com/Alturino/pos/internal/retry"
	"github.com/Alturino/pos/product/internal/cache"
	"github.com/Alturino/pos/product/internal/controller"
	"github.com/Alturino/pos/product/internal/listener"
	"github.com/Alturino/pos/product/internal/openfoodfacts"
	"github.com/Alturino/pos/product/internal/otel"
	"github.com/Alturino/pos/product/internal/service"
)

func NewProductService(deps infra.Dependencies) *service.ProductService {
	cfg := deps.Config
	return service.NewProductService(
		repository.New(deps.Pool),
		cache.NewProductCache(deps.Cache, cfg.Cache.ProductTTL),
		openfoodfacts.NewClient(cfg.OpenFoodFacts.BaseURL, cfg.OpenFoodFacts.Timeout),
		retry.WithMaxAttempts(cfg.Checkout.MaxAttempts),
		retry.WithExponentialBackOff(cfg.Checkout.InitialBackoff, cfg.Checkout.MaxBackoff),
	)
}

func AttachProductService(
	c context.Context,
	router *mux.Router,
	deps infra.Dependencies,
) *service.ProductService {
	_, span := otel.Tracer.Start(c, "AttachProductService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppProductService).
		Str(log.KeyTag, "main AttachProductService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing productService").Logger()
	logger.Info().Msg("initializing productService")
	productService := NewProductService(deps)
	logger.Info().Msg("initialized productService")

	logger = logger.With().Str(log.KeyProcess, "attaching product controller").Logger()
	logger.Info().Msg("attaching product controller")
	controller.AttachProductController(router, productService, deps.Validate)
	logger.Info().Msg("attached product controller")

	return productService
}

func NewStockListener(deps infra.Dependencies) *listener.StockListener {
	return listener.NewStockListener(
		deps.Cache,
		cache.NewProductCache(deps.Cache, deps.Config.Cache.ProductTTL),
		constants.ChannelStockUpdated,
	)
}
