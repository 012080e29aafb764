package cmd

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/internal/infra"
	"github.com/Alturino/pos/internal/log"
	"github.com/Alturino/pos/internal/repository"
	"github.com/Alturino/pos/sale/internal/controller"
	"github.com/Alturino/pos/sale/internal/otel"
	"github.com/Alturino/pos/sale/internal/publisher"
	"github.com/Alturino/pos/sale/internal/service"
)

// NewSaleService falls back to a publisher that drops events when deps carries no
// broker connection.
func NewSaleService(deps infra.Dependencies) (*service.SaleService, error) {
	var pub publisher.Publisher = publisher.NoopPublisher{}
	if deps.Broker != nil {
		amqpPublisher, err := publisher.NewAmqpPublisher(deps.Broker, deps.Config.Broker.Exchange)
		if err != nil {
			return nil, fmt.Errorf("failed initializing sale publisher with error=%w", err)
		}
		pub = amqpPublisher
	}
	return service.NewSaleService(deps.Pool, repository.New(deps.Pool), deps.Cache, pub), nil
}

func AttachSaleService(
	c context.Context,
	router *mux.Router,
	deps infra.Dependencies,
) (*service.SaleService, error) {
	_, span := otel.Tracer.Start(c, "AttachSaleService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppSaleService).
		Str(log.KeyTag, "main AttachSaleService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing saleService").Logger()
	logger.Info().Msg("initializing saleService")
	saleService, err := NewSaleService(deps)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized saleService")

	logger = logger.With().Str(log.KeyProcess, "attaching sale controller").Logger()
	logger.Info().Msg("attaching sale controller")
	controller.AttachSaleController(router, saleService, deps.Validate)
	logger.Info().Msg("attached sale controller")

	return saleService, nil
}
