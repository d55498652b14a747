package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alonso06/showcase-queueapi/internal/events"
	"github.com/alonso06/showcase-queueapi/internal/repository"
	"github.com/alonso06/showcase-queueapi/internal/service"
)

// RebalanceWorker drives the rebalancer on a timer and on engine events.
// Admissions and completions request a pass for their priority; a drained
// queue triggers one immediately instead of waiting for the next tick. The
// rebalance service itself coalesces overlapping triggers, so firing
// liberally here is safe.
type RebalanceWorker struct {
	rebalancer *service.RebalanceService
	priorities repository.PriorityRepository
	interval   time.Duration
	logger     *zap.Logger
}

// NewRebalanceWorker builds the worker.
func NewRebalanceWorker(rebalancer *service.RebalanceService, priorities repository.PriorityRepository, interval time.Duration, logger *zap.Logger) *RebalanceWorker {
	return &RebalanceWorker{
		rebalancer: rebalancer,
		priorities: priorities,
		interval:   interval,
		logger:     logger,
	}
}

// RegisterHandlers subscribes the worker to rebalance-relevant events.
// Handlers run the pass on a fresh goroutine so the synchronous dispatcher
// never blocks the request that published the event.
func (w *RebalanceWorker) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketAdmitted, w.handleEvent)
	dispatcher.Subscribe(events.EventServiceCompleted, w.handleEvent)
	dispatcher.Subscribe(events.EventQueueDrained, w.handleEvent)
}

func (w *RebalanceWorker) handleEvent(_ context.Context, event events.Event) error {
	go w.rebalance(context.Background(), event.PriorityID)
	return nil
}

// Start runs the periodic loop until ctx is cancelled.
func (w *RebalanceWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.rebalanceAll(ctx)
		}
	}
}

func (w *RebalanceWorker) rebalanceAll(ctx context.Context) {
	levels, err := w.priorities.List(ctx)
	if err != nil {
		w.logger.Warn("rebalance tick: listing priorities failed", zap.Error(err))
		return
	}
	for _, level := range levels {
		w.rebalance(ctx, level.ID)
	}
}

func (w *RebalanceWorker) rebalance(ctx context.Context, priorityID string) {
	if priorityID == "" {
		return
	}
	if _, err := w.rebalancer.TriggerRebalance(ctx, priorityID); err != nil {
		w.logger.Warn("rebalance failed",
			zap.String("priority_id", priorityID),
			zap.Error(err))
	}
}
