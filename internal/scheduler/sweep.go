package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/cupido/internal/metrics"
	"github.com/example/cupido/internal/models"
	"github.com/example/cupido/internal/store"
)

// deliverer is the slice of the delivery engine the sweep needs.
type deliverer interface {
	DeliverSingleMessage(ctx context.Context, order *models.Order, msg *models.Message) bool
	FinalizeIfComplete(ctx context.Context, order *models.Order) (bool, error)
}

// dueSource yields past-due undelivered scheduled messages.
type dueSource interface {
	DueScheduledMessages(ctx context.Context, now time.Time) ([]store.ScheduledDelivery, error)
}

// Sweep is one periodic pass over past-due scheduled messages. Each
// item is processed in isolation: a failure on one message never aborts
// the rest of the batch.
type Sweep struct {
	source   dueSource
	delivery deliverer
}

// NewSweep builds the sweep over a due-message source and the delivery
// engine.
func NewSweep(source dueSource, delivery deliverer) *Sweep {
	return &Sweep{source: source, delivery: delivery}
}

// Run executes one sweep. It is the tick function of the Scheduler.
func (s *Sweep) Run(ctx context.Context) {
	start := time.Now()

	due, err := s.source.DueScheduledMessages(ctx, start)
	if err != nil {
		slog.Error("sweep: failed to fetch due messages", "err", err)
		return
	}

	metrics.SweepBatchSize.Observe(float64(len(due)))
	if len(due) == 0 {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
		return
	}

	slog.Info("sweep: processing due messages", "count", len(due))

	delivered := 0
	for i := range due {
		item := due[i]
		if !s.delivery.DeliverSingleMessage(ctx, &item.Order, &item.Message) {
			slog.Error("sweep: delivery failed",
				"order_id", item.Order.ID, "message_index", item.Message.MessageIndex)
			continue
		}
		delivered++

		if _, err := s.delivery.FinalizeIfComplete(ctx, &item.Order); err != nil {
			slog.Error("sweep: completion check failed", "order_id", item.Order.ID, "err", err)
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	slog.Info("sweep: done", "delivered", delivered, "failed", len(due)-delivered)
}
