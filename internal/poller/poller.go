package poller

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	consumerGroup = "storefront-order-events"
	retryBackoff  = time.Second
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Reconciler interface {
	ReconcileOrder(ctx context.Context, orderID string) error
}

// Poller consumes order.placed events, finishes any cart clear the order still
// owes and drops the owner's cached cart.
type Poller struct {
	reader     MessageReader
	reconciler Reconciler
	cache      cache.CartCache
	log        zerolog.Logger
}

func NewKafkaReader(topic string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(reader MessageReader, reconciler Reconciler, cartCache cache.CartCache, log zerolog.Logger) *Poller {
	return &Poller{
		reader:     reader,
		reconciler: reconciler,
		cache:      cartCache,
		log:        log.With().Str("component", "order-events").Logger(),
	}
}

func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Msg("order event consumer started")
	for {
		if ctx.Err() != nil {
			p.log.Info().Msg("order event consumer stopped")
			return
		}
		if err := p.poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Error().Err(err).Msg("error reading message")
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error().Err(err).Msg("error closing reader")
	}
}

// poll handles one message. Messages are committed once handled, including ones
// that can't be parsed; a failed reconcile is retried by the outbox recovery loop.
func (p *Poller) poll(ctx context.Context) error {
	msg, err := p.reader.FetchMessage(ctx)
	if err != nil {
		return err
	}

	p.handle(ctx, msg)

	return p.reader.CommitMessages(ctx, msg)
}

func (p *Poller) handle(ctx context.Context, msg kafka.Message) {
	if eventType := header(msg, "event_type"); eventType != "" && eventType != domain.EventTypeOrderPlaced {
		return
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error parsing message")
		return
	}
	if event.OrderID == "" || event.UserID == "" {
		p.log.Error().Int64("offset", msg.Offset).Msg("missing order_id or user_id")
		return
	}

	if err := p.reconciler.ReconcileOrder(ctx, event.OrderID); err != nil {
		lvl := p.log.Error()
		if errors.Is(err, domain.ErrNotFound) {
			lvl = p.log.Warn()
		}
		lvl.Err(err).Str("order_id", event.OrderID).Msg("failed to reconcile order")
	}

	if err := p.cache.Delete(ctx, event.UserID); err != nil {
		p.log.Warn().Err(err).Str("user_id", event.UserID).Msg("failed to delete cache")
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
