package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	cartCmd "github.com/Alturino/pos/cart/cmd"
	"github.com/Alturino/pos/internal/config"
	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/internal/infra"
	"github.com/Alturino/pos/internal/log"
	"github.com/Alturino/pos/internal/middleware"
	inOtel "github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/internal/validate"
	productCmd "github.com/Alturino/pos/product/cmd"
	saleCmd "github.com/Alturino/pos/sale/cmd"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the point of sale http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			withListener, _ := cmd.Flags().GetBool("with-listener")
			return runServer(cmd.Context(), configName(cmd), withListener)
		},
	}
	cmd.Flags().Bool("with-listener", true, "evict cached products on stock updates in this process")
	return cmd
}

// openDependencies connects to every backing service. The returned close function
// releases whatever was opened, also when an error is returned.
func openDependencies(c context.Context, cfg *config.Config) (infra.Dependencies, func(), error) {
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "main openDependencies").Logger()

	deps := infra.Dependencies{Config: cfg, Validate: validate.New()}
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	logger = logger.With().Str(log.KeyProcess, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	pool, err := infra.NewDatabaseClient(c, cfg.Database)
	if err != nil {
		return deps, closeAll, fmt.Errorf("failed initializing database with error=%w", err)
	}
	closers = append(closers, func() {
		logger.Info().Msg("closing database")
		pool.Close()
		logger.Info().Msg("closed database")
	})
	deps.Pool = pool
	logger.Info().Msg("initialized database")

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	cache, err := infra.NewCacheClient(c, cfg.Cache)
	if err != nil {
		return deps, closeAll, fmt.Errorf("failed initializing cache with error=%w", err)
	}
	closers = append(closers, func() {
		logger.Info().Msg("closing cache")
		if err := cache.Close(); err != nil {
			logger.Error().Err(err).Msg("failed closing cache")
			return
		}
		logger.Info().Msg("closed cache")
	})
	deps.Cache = cache
	logger.Info().Msg("initialized cache")

	if cfg.Broker.URL == "" {
		logger.Warn().Msg("broker url is empty, sale events will not be published")
		return deps, closeAll, nil
	}
	logger = logger.With().Str(log.KeyProcess, "initializing broker").Logger()
	logger.Info().Msg("initializing broker")
	var broker *amqp.Connection
	if broker, err = infra.NewBrokerConnection(c, cfg.Broker); err != nil {
		return deps, closeAll, fmt.Errorf("failed initializing broker with error=%w", err)
	}
	closers = append(closers, func() {
		logger.Info().Msg("closing broker")
		if err := broker.Close(); err != nil {
			logger.Error().Err(err).Msg("failed closing broker")
			return
		}
		logger.Info().Msg("closed broker")
	})
	deps.Broker = broker
	logger.Info().Msg("initialized broker")

	return deps, closeAll, nil
}

func runServer(c context.Context, configName string, withListener bool) error {
	c, span := inOtel.Tracer.Start(c, "runServer")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppPosServer).
		Str(log.KeyTag, "main runServer").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "init config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, configName)
	logger.Info().Msg("initialized config")

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	otelShutdowns, err := inOtel.InitOtelSdk(c, constants.AppPosServer, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		sc, cancel := context.WithTimeout(context.WithoutCancel(c), shutdownTimeout)
		defer cancel()
		if err := inOtel.ShutdownOtel(sc, otelShutdowns); err != nil {
			logger.Error().Err(err).Msg("failed shutting down otel")
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	deps, closeDeps, err := openDependencies(c, cfg)
	defer closeDeps()
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "migrating database").Logger()
	if err = infra.MigrateUp(c, deps.Pool, cfg.Database, 0); err != nil {
		inOtel.RecordError(err, span)
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	api := router.NewRoute().Subrouter()
	api.Use(
		otelmux.Middleware(constants.AppPosServer),
		middleware.Logging,
		middleware.RecoverPanic,
		middleware.Auth([]byte(cfg.Application.SecretKey)),
	)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "attaching services").Logger()
	logger.Info().Msg("attaching services")
	productService := productCmd.AttachProductService(c, api, deps)
	saleService, err := saleCmd.AttachSaleService(c, api, deps)
	if err != nil {
		inOtel.RecordError(err, span)
		return err
	}
	if _, err = cartCmd.AttachCartService(c, api, deps, productService, saleService, prometheus.DefaultRegisterer); err != nil {
		inOtel.RecordError(err, span)
		return err
	}
	logger.Info().Msg("attached services")

	if withListener {
		go func() {
			if err := productCmd.NewStockListener(deps).Run(c); err != nil {
				logger.Error().Err(err).Msg("stock listener stopped")
			}
		}()
	}

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	server := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger := logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("error=%w occured while server is running", err)
		}
		close(serverErr)
	}()

	select {
	case err = <-serverErr:
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	case <-c.Done():
	}

	logger = logger.With().Str(log.KeyProcess, "shutdown server").Logger()
	logger.Info().Msg("received interuption signal shutting down")
	sc, cancel := context.WithTimeout(context.WithoutCancel(c), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(sc); err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("shutdown http server")
	return nil
}
