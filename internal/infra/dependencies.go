package infra

import (
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/Alturino/pos/internal/config"
)

// Dependencies are the shared clients every service is built from. Broker may be
// nil when events are not published.
type Dependencies struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Cache    *redis.Client
	Broker   *amqp.Connection
	Validate *validator.Validate
}
