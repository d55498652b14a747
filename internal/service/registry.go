package service

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alonso06/showcase-queueapi/internal/config"
	"github.com/alonso06/showcase-queueapi/internal/domain"
	"github.com/alonso06/showcase-queueapi/internal/repository"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// Sequencing errors internal to the engine. Admission and the rebalancer
// translate these into the surfaced taxonomy or skip to the next candidate.
var (
	errQueueNotOpen     = errors.New("queue not open")
	errNoMovableTicket  = errors.New("no waiting ticket to move")
	errCapacityExceeded = errors.New("capacity exceeded")
)

// QueueLoad pairs a queue with its occupancy at snapshot time.
type QueueLoad struct {
	Queue     domain.Queue
	Occupancy int
}

// lockTable hands out one mutex per queue identifier.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (t *lockTable) get(queueID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.locks == nil {
		t.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := t.locks[queueID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[queueID] = lock
	}
	return lock
}

// QueueRegistry exclusively owns the set of queues and is the single writer
// of their ticket sequences. Every structural mutation runs inside the
// owning queue's exclusion scope; cross-queue moves take both scopes in
// ascending queue-ID order so concurrent rebalances cannot deadlock.
type QueueRegistry struct {
	queues  repository.QueueRepository
	tickets repository.TicketRepository
	tracker *PositionTracker
	cfg     config.EngineConfig
	locks   lockTable
}

// NewQueueRegistry builds the registry.
func NewQueueRegistry(queues repository.QueueRepository, tickets repository.TicketRepository, tracker *PositionTracker, cfg config.EngineConfig) *QueueRegistry {
	return &QueueRegistry{
		queues:  queues,
		tickets: tickets,
		tracker: tracker,
		cfg:     cfg,
	}
}

// withQueue runs fn while holding the queue's exclusion scope.
func (r *QueueRegistry) withQueue(queueID string, fn func() error) error {
	lock := r.locks.get(queueID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// withQueuePair runs fn while holding both queues' scopes, acquired in
// ascending ID order.
func (r *QueueRegistry) withQueuePair(a, b string, fn func() error) error {
	if a == b {
		return r.withQueue(a, fn)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	firstLock := r.locks.get(first)
	secondLock := r.locks.get(second)
	firstLock.Lock()
	defer firstLock.Unlock()
	secondLock.Lock()
	defer secondLock.Unlock()
	return fn()
}

// retryOnConflict retries fn while the durable store reports a version
// conflict from a competing writer, with linear backoff, before surfacing
// the conflict.
func (r *QueueRegistry) retryOnConflict(ctx context.Context, fn func() error) error {
	attempts := r.cfg.ConflictRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := r.cfg.ConflictRetryBackoff()

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt+1)):
		}
	}
	return apperrors.NewConcurrencyConflict(err)
}

// OpenQueues returns open queues for the priority ordered by occupancy
// ascending, ties broken by queue identifier for determinism.
func (r *QueueRegistry) OpenQueues(ctx context.Context, priorityID string) ([]QueueLoad, error) {
	queues, err := r.queues.ListOpenByPriority(ctx, priorityID)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}

	loads := make([]QueueLoad, 0, len(queues))
	for _, queue := range queues {
		occ, err := r.tickets.CountActiveByQueue(ctx, queue.ID)
		if err != nil {
			return nil, apperrors.NewPersistenceFailure(err)
		}
		loads = append(loads, QueueLoad{Queue: queue, Occupancy: occ})
	}

	sort.Slice(loads, func(i, j int) bool {
		if loads[i].Occupancy != loads[j].Occupancy {
			return loads[i].Occupancy < loads[j].Occupancy
		}
		return loads[i].Queue.ID < loads[j].Queue.ID
	})
	return loads, nil
}

// Occupancy returns the number of active tickets in the queue.
func (r *QueueRegistry) Occupancy(ctx context.Context, queueID string) (int, error) {
	count, err := r.tickets.CountActiveByQueue(ctx, queueID)
	if err != nil {
		return 0, apperrors.NewPersistenceFailure(err)
	}
	return count, nil
}

// IsEmpty reports whether the queue holds no active tickets.
func (r *QueueRegistry) IsEmpty(ctx context.Context, queueID string) (bool, error) {
	count, err := r.Occupancy(ctx, queueID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Append adds the ticket to the queue tail, assigning the next contiguous
// position. The capacity hint is enforced unless allowOverflow is set.
// Occupancy is re-read under the queue lock, so two concurrent appends can
// never produce duplicate order numbers.
func (r *QueueRegistry) Append(ctx context.Context, queueID string, ticket *domain.CustomerTicket, allowOverflow bool) error {
	return r.withQueue(queueID, func() error {
		return r.retryOnConflict(ctx, func() error {
			queue, err := r.queues.GetByID(ctx, queueID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NewNotFound("queue", map[string]any{"queue_id": queueID})
				}
				return apperrors.NewPersistenceFailure(err)
			}
			if !queue.IsOpen() {
				return errQueueNotOpen
			}

			occ, err := r.tickets.CountActiveByQueue(ctx, queueID)
			if err != nil {
				return apperrors.NewPersistenceFailure(err)
			}
			if !allowOverflow && queue.Capacity > 0 && occ >= queue.Capacity {
				return errCapacityExceeded
			}

			if ticket.ID == "" {
				ticket.ID = uuid.NewString()
			}
			ticket.QueueID = queue.ID
			ticket.PriorityID = queue.PriorityID
			ticket.Position = occ + 1
			if err := r.tickets.Create(ctx, ticket); err != nil {
				return apperrors.NewPersistenceFailure(err)
			}
			return nil
		})
	})
}

// Remove takes the ticket out of its queue's sequence, marking it with the
// given terminal status, and renumbers the tickets behind it. It returns the
// updated ticket and the queue's remaining occupancy.
func (r *QueueRegistry) Remove(ctx context.Context, queueID, ticketID string, outcome domain.TicketStatus) (*domain.CustomerTicket, int, error) {
	var removed *domain.CustomerTicket
	var remaining int
	err := r.withQueue(queueID, func() error {
		return r.retryOnConflict(ctx, func() error {
			ticket, err := r.tickets.GetByID(ctx, ticketID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
				}
				return apperrors.NewPersistenceFailure(err)
			}
			if ticket.QueueID != queueID || !ticket.Active() {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID, "queue_id": queueID})
			}

			ticket.Status = outcome
			if outcome == domain.TicketStatusServed {
				now := time.Now()
				ticket.ServedAt = &now
			}
			if err := r.tickets.Update(ctx, ticket); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					return err
				}
				return apperrors.NewPersistenceFailure(err)
			}
			if err := r.tracker.Renumber(ctx, queueID); err != nil {
				return apperrors.NewPersistenceFailure(err)
			}

			count, err := r.tickets.CountActiveByQueue(ctx, queueID)
			if err != nil {
				return apperrors.NewPersistenceFailure(err)
			}
			removed = ticket
			remaining = count
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}
	return removed, remaining, nil
}

// Claim transitions the head-most waiting ticket of the queue to
// being-served and returns it. Returns NotFound when no ticket is waiting.
func (r *QueueRegistry) Claim(ctx context.Context, queueID string) (*domain.CustomerTicket, error) {
	var claimed *domain.CustomerTicket
	err := r.withQueue(queueID, func() error {
		return r.retryOnConflict(ctx, func() error {
			active, err := r.tickets.ListActiveByQueue(ctx, queueID)
			if err != nil {
				return apperrors.NewPersistenceFailure(err)
			}
			for i := range active {
				if active[i].Status != domain.TicketStatusWaiting {
					continue
				}
				ticket := active[i]
				ticket.Status = domain.TicketStatusBeingServed
				if err := r.tickets.Update(ctx, &ticket); err != nil {
					if errors.Is(err, repository.ErrVersionConflict) {
						return err
					}
					return apperrors.NewPersistenceFailure(err)
				}
				claimed = &ticket
				return nil
			}
			return apperrors.NewNotFound("waiting ticket", map[string]any{"queue_id": queueID})
		})
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MoveTail relocates the tail-most waiting ticket of the source queue to the
// destination tail. The original record is closed as reassigned with a
// superseded-by back-reference; the replacement keeps the admission
// timestamp and gets a fresh order number. Being-served tickets are never
// moved.
func (r *QueueRegistry) MoveTail(ctx context.Context, fromQueueID, toQueueID string, allowOverflow bool) (*domain.CustomerTicket, *domain.CustomerTicket, error) {
	var moved, superseded *domain.CustomerTicket
	err := r.withQueuePair(fromQueueID, toQueueID, func() error {
		return r.retryOnConflict(ctx, func() error {
			source, err := r.tickets.ListActiveByQueue(ctx, fromQueueID)
			if err != nil {
				return apperrors.NewPersistenceFailure(err)
			}

			var candidate *domain.CustomerTicket
			for i := len(source) - 1; i >= 0; i-- {
				if source[i].Status == domain.TicketStatusWaiting {
					candidate = &source[i]
					break
				}
			}
			if candidate == nil {
				return errNoMovableTicket
			}

			dest, err := r.queues.GetByID(ctx, toQueueID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperrors.NewNotFound("queue", map[string]any{"queue_id": toQueueID})
				}
				return apperrors.NewPersistenceFailure(err)
			}
			if !dest.IsOpen() {
				return errQueueNotOpen
			}
			destOcc, err := r.tickets.CountActiveByQueue(ctx, toQueueID)
			if err != nil {
				return apperrors.NewPersistenceFailure(err)
			}
			if !allowOverflow && dest.Capacity > 0 && destOcc >= dest.Capacity {
				return errCapacityExceeded
			}

			replacement := &domain.CustomerTicket{
				ID:           uuid.NewString(),
				QueueID:      dest.ID,
				PriorityID:   dest.PriorityID,
				CustomerName: candidate.CustomerName,
				CustomerRef:  candidate.CustomerRef,
				Position:     destOcc + 1,
				Status:       domain.TicketStatusWaiting,
				AdmittedAt:   candidate.AdmittedAt,
			}

			// Close the original first: if a competing writer touched it, the
			// version check fails here and the retry re-runs with nothing
			// created yet.
			candidate.Status = domain.TicketStatusReassigned
			candidate.SupersededBy = &replacement.ID
			if err := r.tickets.Update(ctx, candidate); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					return err
				}
				return apperrors.NewPersistenceFailure(err)
			}
			if err := r.tickets.Create(ctx, replacement); err != nil {
				return apperrors.NewPersistenceFailure(err)
			}
			if err := r.tracker.Renumber(ctx, fromQueueID); err != nil {
				return apperrors.NewPersistenceFailure(err)
			}
			r.tracker.Forget(ctx, candidate.ID)
			moved = replacement
			superseded = candidate
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return moved, superseded, nil
}

// CreateQueue registers a new queue. Administrative operation; the engine
// itself never auto-creates queues.
func (r *QueueRegistry) CreateQueue(ctx context.Context, queueID, priorityID string, capacity int) (*domain.Queue, error) {
	if capacity <= 0 {
		capacity = r.cfg.DefaultQueueCapacity
	}
	queue := &domain.Queue{
		ID:         queueID,
		PriorityID: priorityID,
		Capacity:   capacity,
		Status:     domain.QueueStatusOpen,
	}
	if err := r.queues.Create(ctx, queue); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperrors.NewDomainError("QUEUE_EXISTS", "queue already exists", http.StatusConflict, map[string]any{
				"queue_id": queueID,
			})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return queue, nil
}

// CloseQueue closes a queue for new admissions. A queue may only close once
// it holds zero tickets; callers drain it first (completion or rebalance).
func (r *QueueRegistry) CloseQueue(ctx context.Context, queueID string) error {
	return r.withQueue(queueID, func() error {
		queue, err := r.queues.GetByID(ctx, queueID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("queue", map[string]any{"queue_id": queueID})
			}
			return apperrors.NewPersistenceFailure(err)
		}
		occ, err := r.tickets.CountActiveByQueue(ctx, queueID)
		if err != nil {
			return apperrors.NewPersistenceFailure(err)
		}
		if occ > 0 {
			return apperrors.NewDomainError("QUEUE_NOT_EMPTY", "queue still holds tickets", http.StatusConflict, map[string]any{
				"queue_id":  queueID,
				"occupancy": occ,
			})
		}
		queue.Status = domain.QueueStatusClosed
		if err := r.queues.Update(ctx, queue); err != nil {
			return apperrors.NewPersistenceFailure(err)
		}
		return nil
	})
}
