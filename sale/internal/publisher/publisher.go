package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/internal/log"
	inOtel "github.com/Alturino/pos/internal/otel"
	"github.com/Alturino/pos/sale/internal/otel"
	"github.com/Alturino/pos/sale/pkg/response"
)

const publishTimeout = 3 * time.Second

type Publisher interface {
	PublishSaleRecorded(c context.Context, sale response.Sale) error
}

func NewSaleRecordedEvent(sale response.Sale, correlationID string, now time.Time) SaleRecordedEvent {
	items := make([]SaleRecordedItem, 0, len(sale.Items))
	for _, i := range sale.Items {
		items = append(items, SaleRecordedItem{ProductID: i.ProductID, Quantity: i.Quantity, UnitPrice: i.UnitPrice})
	}
	return SaleRecordedEvent{
		EventName:     EventSaleRecorded,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      constants.AppSaleService,
		PartitionKey:  sale.TenantID.String(),
		Schema:        saleRecordedSchema,
		OccurredAt:    now,
		Payload: SaleRecordedPayload{
			SaleID:        sale.ID,
			TenantID:      sale.TenantID,
			TerminalID:    sale.TerminalID,
			CountryCode:   sale.CountryCode,
			PaymentMethod: sale.PaymentMethod,
			Subtotal:      sale.Subtotal,
			Vat:           sale.Vat,
			RoundedTotal:  sale.RoundedTotal,
			RecordedAt:    sale.CreatedAt,
			Items:         items,
		},
	}
}

type AmqpPublisher struct {
	ch       *amqp.Channel
	exchange string
}

func NewAmqpPublisher(conn *amqp.Connection, exchange string) (*AmqpPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed opening channel with error=%w", err)
	}
	return &AmqpPublisher{ch: ch, exchange: exchange}, nil
}

func (p *AmqpPublisher) Close() error {
	return p.ch.Close()
}

func (p *AmqpPublisher) PublishSaleRecorded(c context.Context, sale response.Sale) error {
	c, span := otel.Tracer.Start(c, "AmqpPublisher PublishSaleRecorded")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "AmqpPublisher PublishSaleRecorded").
		Str(log.KeySaleID, sale.ID.String()).
		Str(log.KeyRoutingKey, RoutingKeySaleRecorded).
		Logger()

	ev := NewSaleRecordedEvent(sale, log.RequestIDFromContext(c), time.Now().UTC())
	body, err := json.Marshal(ev)
	if err != nil {
		err = fmt.Errorf("failed marshaling sale recorded event with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "publishing event").Logger()
	logger.Trace().Msg("publishing event")
	pc, cancel := context.WithTimeout(c, publishTimeout)
	defer cancel()
	err = p.ch.PublishWithContext(pc, p.exchange, RoutingKeySaleRecorded, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     ev.EventID,
		CorrelationId: ev.CorrelationID,
		Timestamp:     ev.OccurredAt,
		Type:          ev.EventName,
		Body:          body,
	})
	if err != nil {
		err = fmt.Errorf("failed publishing sale recorded event with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Str(log.KeyEvent, ev.EventID).Msg("published event")
	return nil
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishSaleRecorded(c context.Context, sale response.Sale) error {
	zerolog.Ctx(c).Debug().Str(log.KeySaleID, sale.ID.String()).Msg("broker disabled, skipping sale event")
	return nil
}
