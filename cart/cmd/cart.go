package cmd

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/cart/internal/controller"
	"github.com/Alturino/pos/cart/internal/metric"
	"github.com/Alturino/pos/cart/internal/otel"
	"github.com/Alturino/pos/cart/internal/payment"
	"github.com/Alturino/pos/cart/internal/service"
	"github.com/Alturino/pos/cart/internal/session"
	"github.com/Alturino/pos/cart/pkg/tax"
	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/internal/infra"
	"github.com/Alturino/pos/internal/log"
	"github.com/Alturino/pos/internal/retry"
)

// LoadTaxTable falls back to the built-in table when no file is configured.
func LoadTaxTable(path string) (tax.Table, error) {
	if path == "" {
		return tax.DefaultTable(), nil
	}
	table, err := tax.LoadTable(path)
	if err != nil {
		return tax.Table{}, fmt.Errorf("failed loading tax table with error=%w", err)
	}
	return table, nil
}

func NewCartService(
	deps infra.Dependencies,
	catalog service.ProductCatalog,
	recorder service.SaleRecorder,
	reg prometheus.Registerer,
) (*service.CartService, error) {
	cfg := deps.Config
	taxes, err := LoadTaxTable(cfg.Application.TaxTablePath)
	if err != nil {
		return nil, err
	}
	return service.NewCartService(
		session.NewStore(),
		catalog,
		recorder,
		payment.NewManualTerminal(),
		metric.New(reg),
		taxes,
		cfg.Application.CountryCode,
		retry.WithMaxAttempts(cfg.Checkout.MaxAttempts),
		retry.WithExponentialBackOff(cfg.Checkout.InitialBackoff, cfg.Checkout.MaxBackoff),
	), nil
}

// AttachCartService registers the cart routes and starts sweeping idle carts until
// c is done.
func AttachCartService(
	c context.Context,
	router *mux.Router,
	deps infra.Dependencies,
	catalog service.ProductCatalog,
	recorder service.SaleRecorder,
	reg prometheus.Registerer,
) (*service.CartService, error) {
	_, span := otel.Tracer.Start(c, "AttachCartService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppCartService).
		Str(log.KeyTag, "main AttachCartService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing cartService").Logger()
	logger.Info().Msg("initializing cartService")
	cartService, err := NewCartService(deps, catalog, recorder, reg)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized cartService")

	logger = logger.With().Str(log.KeyProcess, "attaching cart controller").Logger()
	logger.Info().Msg("attaching cart controller")
	controller.AttachCartController(router, cartService, deps.Validate)
	logger.Info().Msg("attached cart controller")

	if ttl := deps.Config.Checkout.SessionTTL; ttl > 0 {
		go cartService.Sessions().RunSweeper(logger.WithContext(c), ttl/4, ttl, cartService.ObserveSessions)
	}

	return cartService, nil
}
