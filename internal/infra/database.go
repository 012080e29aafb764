package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Alturino/pos/internal/config"
	"github.com/Alturino/pos/internal/log"
	"github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/internal/poll"
)

const (
	readinessInterval    = 2 * time.Second
	readinessMaxAttempts = 15
)

func PostgresURL(cfg config.Database) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable&timezone=%s",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.TimeZone,
	)
}

func NewDatabaseClient(c context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	c, span := otel.Tracer.Start(c, "infra NewDatabaseClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewDatabaseClient").
		Str(log.KeyDbURL, fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Name)).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing pgx config").Logger()
	logger.Info().Msg("initializing pgx config")
	pgxConfig, err := pgxpool.ParseConfig(PostgresURL(cfg))
	if err != nil {
		err = fmt.Errorf("failed creating pgx config with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	pgxConfig.MaxConns = cfg.MaxConnections
	pgxConfig.MinConns = cfg.MinConnections
	pgxConfig.MaxConnLifetime = 15 * time.Minute
	pgxConfig.MaxConnIdleTime = 5 * time.Minute
	pgxConfig.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	pgxConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	logger.Info().Msg("initialized pgx config")

	logger = logger.With().Str(log.KeyProcess, "creating connection pool").Logger()
	logger.Info().Msg("creating connection pool")
	pool, err := pgxpool.NewWithConfig(c, pgxConfig)
	if err != nil {
		err = fmt.Errorf("failed creating connection pool with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("created connection pool")

	logger = logger.With().Str(log.KeyProcess, "waiting for database").Logger()
	logger.Info().Msg("waiting for database")
	err = poll.Until(c, readinessInterval, readinessMaxAttempts, func(c context.Context) (bool, error) {
		if err := pool.Ping(c); err != nil {
			logger.Warn().Err(err).Msg("database not ready")
			return false, err
		}
		return true, nil
	})
	if err != nil {
		pool.Close()
		err = fmt.Errorf("failed waiting for database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("database ready")

	return pool, nil
}

func newMigration(c context.Context, pool *pgxpool.Pool, cfg config.Database) (*migrate.Migrate, error) {
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "infra newMigration").Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing db driver").Logger()
	logger.Info().Msg("initializing db driver")
	driver, err := postgres.WithInstance(stdlib.OpenDBFromPool(pool), &postgres.Config{})
	if err != nil {
		err = fmt.Errorf("failed creating postgres driver to do migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized db driver")

	logger = logger.With().Str(log.KeyProcess, "initializing migration").Logger()
	logger.Info().Msg("initializing migration")
	migration, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, cfg.Name, driver)
	if err != nil {
		err = fmt.Errorf("failed initializing migration with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized migration")

	return migration, nil
}

// MigrateUp applies pending migrations. Steps greater than zero limit how many are applied.
func MigrateUp(c context.Context, pool *pgxpool.Pool, cfg config.Database, steps int) error {
	c, span := otel.Tracer.Start(c, "infra MigrateUp")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra MigrateUp").
		Str(log.KeyProcess, "migration up").
		Logger()

	migration, err := newMigration(c, pool, cfg)
	if err != nil {
		otel.RecordError(err, span)
		return err
	}

	logger.Info().Msg("migration up")
	if steps > 0 {
		err = migration.Steps(steps)
	} else {
		err = migration.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration up with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("successed migration up")
	return nil
}

func MigrateDown(c context.Context, pool *pgxpool.Pool, cfg config.Database, steps int) error {
	c, span := otel.Tracer.Start(c, "infra MigrateDown")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra MigrateDown").
		Str(log.KeyProcess, "migration down").
		Logger()

	migration, err := newMigration(c, pool, cfg)
	if err != nil {
		otel.RecordError(err, span)
		return err
	}

	logger.Info().Msg("migration down")
	if steps > 0 {
		err = migration.Steps(-steps)
	} else {
		err = migration.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		err = fmt.Errorf("failed migration down with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("successed migration down")
	return nil
}
