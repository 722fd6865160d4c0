package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
)

// PendingClearStore lists placed orders whose cart has not been cleared yet.
type PendingClearStore interface {
	GetPendingCartClears(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Order, error)
}

type Reconciler interface {
	ReconcileOrder(ctx context.Context, orderID string) error
}

// CartClearRecovery finishes two-phase checkouts whose cart clear never ran.
// It only needs the database, so it runs whether or not a broker is configured.
type CartClearRecovery struct {
	cfg        Config
	repo       PendingClearStore
	reconciler Reconciler
	log        zerolog.Logger
}

func NewCartClearRecovery(cfg Config, repo PendingClearStore, reconciler Reconciler, log zerolog.Logger) *CartClearRecovery {
	return &CartClearRecovery{
		cfg:        cfg,
		repo:       repo,
		reconciler: reconciler,
		log:        log.With().Str("component", "cart-clear-recovery").Logger(),
	}
}

func (r *CartClearRecovery) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RecoveryTick)
	defer ticker.Stop()

	r.log.Info().Msg("cart clear recovery started")
	for {
		select {
		case <-ticker.C:
			r.recoverPendingCartClears(ctx)
		case <-ctx.Done():
			r.log.Info().Msg("cart clear recovery stopped")
			return
		}
	}
}

func (r *CartClearRecovery) recoverPendingCartClears(ctx context.Context) {
	orders, err := r.repo.GetPendingCartClears(ctx, time.Now().Add(-r.cfg.RecoveryGrace), r.cfg.BatchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to fetch orders with pending cart clears")
		return
	}

	for _, order := range orders {
		if err := r.reconciler.ReconcileOrder(ctx, order.ID); err != nil {
			r.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to recover cart clear")
			continue
		}
		r.log.Info().Str("order_id", order.ID).Msg("recovered pending cart clear")
	}
}
