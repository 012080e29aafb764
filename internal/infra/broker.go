package infra

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/config"
	"github.com/Alturino/pos/internal/log"
	"github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/internal/poll"
)

// NewBrokerConnection dials RabbitMQ and declares the durable topic exchange sale
// events are published to.
func NewBrokerConnection(c context.Context, cfg config.Broker) (*amqp.Connection, error) {
	c, span := otel.Tracer.Start(c, "infra NewBrokerConnection")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewBrokerConnection").
		Str("exchange", cfg.Exchange).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "dialing broker").Logger()
	logger.Info().Msg("dialing broker")
	var conn *amqp.Connection
	err := poll.Until(c, readinessInterval, readinessMaxAttempts, func(c context.Context) (bool, error) {
		var err error
		conn, err = amqp.Dial(cfg.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("broker not ready")
			return false, err
		}
		return true, nil
	})
	if err != nil {
		err = fmt.Errorf("failed dialing broker with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("dialed broker")

	logger = logger.With().Str(log.KeyProcess, "declaring exchange").Logger()
	logger.Info().Msg("declaring exchange")
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		err = fmt.Errorf("failed opening channel with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	defer ch.Close()
	if err = ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		err = fmt.Errorf("failed declaring exchange with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("declared exchange")

	return conn, nil
}
