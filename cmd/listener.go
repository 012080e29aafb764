package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/pos/internal/config"
	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/internal/infra"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	productCmd "github.com/Alturino/pos/product/cmd"
)

func newStockListenerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stock-listener",
		Short: "Evict cached products when stock changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStockListener(cmd.Context(), configName(cmd))
		},
	}
}

func runStockListener(c context.Context, configName string) error {
	c, span := inOtel.Tracer.Start(c, "runStockListener")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppStockListener).
		Str(log.KeyTag, "main runStockListener").
		Logger()
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, configName)

	otelShutdowns, err := inOtel.InitOtelSdk(c, constants.AppStockListener, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func() {
		if err := inOtel.ShutdownOtel(context.WithoutCancel(c), otelShutdowns); err != nil {
			logger.Error().Err(err).Msg("failed shutting down otel")
		}
	}()

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	cache, err := infra.NewCacheClient(c, cfg.Cache)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer cache.Close()
	logger.Info().Msg("initialized cache")

	logger = logger.With().Str(log.KeyProcess, "listening").Logger()
	deps := infra.Dependencies{Config: cfg, Cache: cache}
	return productCmd.NewStockListener(deps).Run(logger.WithContext(c))
}
