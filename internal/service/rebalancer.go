package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alonso06/showcase-queueapi/internal/config"
	"github.com/alonso06/showcase-queueapi/internal/events"
	"github.com/alonso06/showcase-queueapi/internal/observability"
)

// RebalanceSummary reports the outcome of one rebalance invocation.
// Skipped counts moves that could not happen: source queues with no waiting
// ticket, or a destination that hit capacity mid-run.
type RebalanceSummary struct {
	Moved   int
	Skipped int
}

func (s *RebalanceSummary) add(other RebalanceSummary) {
	s.Moved += other.Moved
	s.Skipped += other.Skipped
}

// rebalanceState serializes runs for one priority level.
type rebalanceState struct {
	mu      sync.Mutex
	running bool
	pending bool
}

// RebalanceService equalizes load across the open queues of a priority.
//
// At most one rebalance per priority is in flight at a time: triggers that
// arrive during a run are coalesced into a single follow-up pass executed by
// the goroutine already running, never queued unboundedly.
type RebalanceService struct {
	registry   *QueueRegistry
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.EngineConfig

	mu     sync.Mutex
	states map[string]*rebalanceState
}

// NewRebalanceService constructs the service.
func NewRebalanceService(cfg config.EngineConfig, registry *QueueRegistry, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *RebalanceService {
	return &RebalanceService{
		registry:   registry,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		states:     make(map[string]*rebalanceState),
	}
}

func (s *RebalanceService) state(priorityID string) *rebalanceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[priorityID]
	if !ok {
		st = &rebalanceState{}
		s.states[priorityID] = st
	}
	return st
}

// TriggerRebalance runs the rebalance loop for a priority level. If a run is
// already in flight for that priority the trigger is folded into a follow-up
// pass of the running invocation and an empty summary is returned.
func (s *RebalanceService) TriggerRebalance(ctx context.Context, priorityID string) (RebalanceSummary, error) {
	st := s.state(priorityID)

	st.mu.Lock()
	if st.running {
		st.pending = true
		st.mu.Unlock()
		return RebalanceSummary{}, nil
	}
	st.running = true
	st.mu.Unlock()

	var total RebalanceSummary
	for {
		summary, err := s.runOnce(ctx, priorityID)
		total.add(summary)

		st.mu.Lock()
		if err != nil || !st.pending {
			st.running = false
			st.mu.Unlock()
			if err != nil {
				return total, err
			}
			break
		}
		st.pending = false
		st.mu.Unlock()
	}

	if s.metrics != nil {
		s.metrics.RecordRebalance(priorityID, total.Moved, total.Skipped)
	}
	if total.Moved > 0 || total.Skipped > 0 {
		s.logger.Info("rebalance finished",
			zap.String("priority_id", priorityID),
			zap.Int("moved", total.Moved),
			zap.Int("skipped", total.Skipped))
	}
	s.publish(ctx, events.Event{
		Type:       events.EventRebalanceCompleted,
		PriorityID: priorityID,
		Payload:    events.RebalanceCompletedPayload{Moved: total.Moved, Skipped: total.Skipped},
	})
	return total, nil
}

// runOnce performs a single pass: while the occupancy spread between the
// most- and least-loaded open queue exceeds the configured threshold, the
// tail-most waiting ticket of the fullest queue moves to the emptiest one.
// The pass stops once another move would make the destination the new
// most-loaded queue (the oscillation guard), when the destination hits
// capacity (partial rebalance, reported not failed), or when no waiting
// ticket is left to move.
func (s *RebalanceService) runOnce(ctx context.Context, priorityID string) (RebalanceSummary, error) {
	var summary RebalanceSummary

	loads, err := s.registry.OpenQueues(ctx, priorityID)
	if err != nil {
		return summary, err
	}
	if len(loads) < 2 {
		return summary, nil
	}

	// A full pass needs at most initial-spread moves; anything beyond that
	// would mean the loop is not converging.
	maxMoves := loads[len(loads)-1].Occupancy - loads[0].Occupancy
	for moves := 0; moves < maxMoves; moves++ {
		least := loads[0]
		most := loads[len(loads)-1]
		spread := most.Occupancy - least.Occupancy
		if spread <= s.cfg.ImbalanceThreshold {
			break
		}
		if spread < 2 {
			// Moving now would just swap which queue is fullest.
			break
		}

		moved, superseded, err := s.registry.MoveTail(ctx, most.Queue.ID, least.Queue.ID, s.cfg.IsOverflowQueue(least.Queue.ID))
		if err != nil {
			if errors.Is(err, errNoMovableTicket) || errors.Is(err, errCapacityExceeded) || errors.Is(err, errQueueNotOpen) {
				summary.Skipped++
				break
			}
			return summary, err
		}
		summary.Moved++

		s.publish(ctx, events.Event{
			Type:       events.EventTicketReassigned,
			TicketID:   moved.ID,
			QueueID:    moved.QueueID,
			PriorityID: moved.PriorityID,
			Payload: events.TicketReassignedPayload{
				FromQueueID:  most.Queue.ID,
				ToQueueID:    least.Queue.ID,
				NewTicketID:  moved.ID,
				NewPosition:  moved.Position,
				SupersededID: superseded.ID,
			},
		})

		loads, err = s.registry.OpenQueues(ctx, priorityID)
		if err != nil {
			return summary, err
		}
		if len(loads) < 2 {
			break
		}
	}
	return summary, nil
}

func (s *RebalanceService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
