package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/internal/poll"
	"github.com/Alturino/pos/product/internal/cache"
	"github.com/Alturino/pos/product/internal/otel"
	"github.com/Alturino/pos/product/pkg/event"
)

const (
	subscribeInterval    = time.Second
	subscribeMaxAttempts = 10
)

// StockListener evicts cached snapshots of products whose stock changed so the
// next read goes to the database.
type StockListener struct {
	client  *redis.Client
	cache   *cache.ProductCache
	channel string
}

func NewStockListener(client *redis.Client, cache *cache.ProductCache, channel string) *StockListener {
	return &StockListener{client: client, cache: cache, channel: channel}
}

func (l *StockListener) Run(c context.Context) error {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StockListener Run").
		Str(log.KeyChannel, l.channel).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "subscribing").Logger()
	logger.Info().Msg("subscribing")
	pubsub := l.client.Subscribe(c, l.channel)
	defer pubsub.Close()

	err := poll.Until(c, subscribeInterval, subscribeMaxAttempts, func(c context.Context) (bool, error) {
		msg, err := pubsub.ReceiveTimeout(c, subscribeInterval)
		if err != nil {
			return false, err
		}
		_, ok := msg.(*redis.Subscription)
		return ok, nil
	})
	if err != nil {
		err = fmt.Errorf("failed subscribing to channel=%s with error=%w", l.channel, err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("subscribed")

	logger = logger.With().Str(log.KeyProcess, "listening").Logger()
	messages := pubsub.Channel()
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped listening")
			return nil
		case msg, ok := <-messages:
			if !ok {
				logger.Info().Msg("channel closed")
				return nil
			}
			requestID := uuid.NewString()
			msgLogger := logger.With().Str(log.KeyRequestID, requestID).Logger()
			mc := log.AttachRequestIDToContext(msgLogger.WithContext(c), requestID)
			if err := l.Handle(mc, msg.Payload); err != nil {
				msgLogger.Error().Err(err).Msg(err.Error())
			}
		}
	}
}

func (l *StockListener) Handle(c context.Context, payload string) error {
	c, span := otel.Tracer.Start(c, "StockListener Handle")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "StockListener Handle").
		Logger()

	ev := event.StockUpdated{}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		err = fmt.Errorf("failed decoding stock event with error=%w", err)
		inOtel.RecordError(err, span)
		return err
	}
	logger = logger.With().
		Str(log.KeyTenantID, ev.TenantID.String()).
		Any(log.KeyProductIDs, ev.ProductIDs).
		Str(log.KeyProcess, "evicting products").
		Logger()

	logger.Info().Msg("evicting products")
	if err := l.cache.Delete(c, ev.TenantID, ev.ProductIDs...); err != nil {
		inOtel.RecordError(err, span)
		return err
	}
	logger.Info().Msg("evicted products")
	return nil
}
