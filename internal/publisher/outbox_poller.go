package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// OutboxStore is the slice of the order repository the poller works from. An
// order with no published_at is an unpublished outbox entry.
type OutboxStore interface {
	GetUnpublishedOrders(ctx context.Context, limit int) ([]*domain.Order, error)
	MarkPublished(ctx context.Context, orderID string, at time.Time) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Config struct {
	EventTick    time.Duration
	RecoveryTick time.Duration
	// RecoveryGrace is how old an order with an uncleared cart must be before
	// the recovery loop steps in, leaving room for the request that placed it.
	RecoveryGrace time.Duration
	BatchSize     int
	WriteTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		EventTick:     time.Second,
		RecoveryTick:  5 * time.Second,
		RecoveryGrace: 30 * time.Second,
		BatchSize:     100,
		WriteTimeout:  5 * time.Second,
	}
}

type OutboxPoller struct {
	cfg     Config
	repo    OutboxStore
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	metrics metrics.Recorder
	log     zerolog.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same order id, same partition
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(cfg Config, repo OutboxStore, writer MessageWriter, rec metrics.Recorder, log zerolog.Logger) *OutboxPoller {
	log = log.With().Str("component", "outbox").Logger()

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-publisher",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &OutboxPoller{
		cfg:     cfg,
		repo:    repo,
		writer:  writer,
		breaker: breaker,
		metrics: rec,
		log:     log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.cfg.EventTick)
	defer eventTicker.Stop()

	p.log.Info().Msg("outbox poller started")
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedOrders(ctx)
		case <-ctx.Done():
			p.log.Info().Msg("outbox poller stopped")
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedOrders(ctx context.Context) {
	orders, err := p.repo.GetUnpublishedOrders(ctx, p.cfg.BatchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch unpublished orders")
		return
	}

	published := 0
	for _, order := range orders {
		if err := p.publish(ctx, order); err != nil {
			p.metrics.RecordOutboxFailure()
			p.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order event")
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return
			}
			continue
		}

		// at-least-once: a crash before this point republishes the order next tick
		if err := p.repo.MarkPublished(ctx, order.ID, time.Now()); err != nil {
			p.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to mark order as published")
			continue
		}
		published++
	}

	if published > 0 {
		p.metrics.RecordOutboxPublished(published)
	}
}

func (p *OutboxPoller) publish(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderPlacedEvent(order))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(domain.EventTypeOrderPlaced)},
			{Key: "event_id", Value: []byte(uuid.NewString())},
		},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		writeCtx, cancel := context.WithTimeout(ctx, p.cfg.WriteTimeout)
		defer cancel()
		return struct{}{}, p.writer.WriteMessages(writeCtx, msg)
	})
	return err
}
