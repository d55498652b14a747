package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alonso06/showcase-queueapi/internal/config"
	"github.com/alonso06/showcase-queueapi/internal/domain"
	"github.com/alonso06/showcase-queueapi/internal/events"
	"github.com/alonso06/showcase-queueapi/internal/observability"
	"github.com/alonso06/showcase-queueapi/internal/repository"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// AdmissionService decides which queue receives an incoming customer and
// drives the ticket lifecycle from admission to completion.
type AdmissionService struct {
	catalog    *PriorityCatalog
	registry   *QueueRegistry
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	cache      PositionCache
	metrics    *observability.Metrics
	engineCfg  config.EngineConfig
}

// AdmissionDependencies bundles collaborators for the admission service.
type AdmissionDependencies struct {
	Catalog    *PriorityCatalog
	Registry   *QueueRegistry
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Cache      PositionCache
	Metrics    *observability.Metrics
}

// AdmitInput carries the customer info attached to a new ticket.
type AdmitInput struct {
	CustomerName string
	CustomerRef  string
}

// NewAdmissionService constructs the service.
func NewAdmissionService(cfg config.EngineConfig, deps AdmissionDependencies) *AdmissionService {
	return &AdmissionService{
		catalog:    deps.Catalog,
		registry:   deps.Registry,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		engineCfg:  cfg,
	}
}

// Admit places a new customer into the least-loaded open queue of the
// resolved priority (ties broken by lowest queue identifier). Greedy
// least-loaded placement is what keeps a short request from starving behind
// an overloaded sibling queue of the same priority.
func (s *AdmissionService) Admit(ctx context.Context, priorityID string, input AdmitInput) (*domain.CustomerTicket, error) {
	level, err := s.catalog.Resolve(ctx, priorityID)
	if err != nil {
		return nil, err
	}

	loads, err := s.registry.OpenQueues(ctx, level.ID)
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, apperrors.NewNoQueueAvailable(level.ID)
	}

	ticket, err := s.place(ctx, level, loads, input)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordAdmission(level.ID)
	}
	s.publish(ctx, events.Event{
		Type:       events.EventTicketAdmitted,
		TicketID:   ticket.ID,
		QueueID:    ticket.QueueID,
		PriorityID: ticket.PriorityID,
		Payload: events.TicketAdmittedPayload{
			Position:     ticket.Position,
			CustomerName: ticket.CustomerName,
		},
	})
	return ticket, nil
}

// place runs the snapshot through first-fit and overflow placement and
// translates the surviving sequencing sentinels into the surfaced taxonomy.
// A snapshot whose every queue closed before the locked append is the same
// outcome as an empty snapshot: no queue is available.
func (s *AdmissionService) place(ctx context.Context, level *domain.PriorityLevel, loads []QueueLoad, input AdmitInput) (*domain.CustomerTicket, error) {
	ticket, err := s.appendToFirstFit(ctx, loads, input, false)
	if errors.Is(err, errCapacityExceeded) {
		// Every open queue is at capacity; the designated overflow queue of
		// the priority, if configured, absorbs the spill.
		ticket, err = s.appendToOverflow(ctx, loads, input)
	}
	if errors.Is(err, errQueueNotOpen) {
		return nil, apperrors.NewNoQueueAvailable(level.ID)
	}
	return ticket, err
}

func (s *AdmissionService) appendToFirstFit(ctx context.Context, loads []QueueLoad, input AdmitInput, allowOverflow bool) (*domain.CustomerTicket, error) {
	var lastErr error = errCapacityExceeded
	for _, load := range loads {
		ticket := newTicket(input)
		err := s.registry.Append(ctx, load.Queue.ID, ticket, allowOverflow)
		if err == nil {
			return ticket, nil
		}
		// A queue that filled up or closed between the snapshot and the
		// locked append is not fatal; the next candidate may still fit.
		if errors.Is(err, errCapacityExceeded) || errors.Is(err, errQueueNotOpen) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *AdmissionService) appendToOverflow(ctx context.Context, loads []QueueLoad, input AdmitInput) (*domain.CustomerTicket, error) {
	for _, load := range loads {
		if !s.engineCfg.IsOverflowQueue(load.Queue.ID) {
			continue
		}
		ticket := newTicket(input)
		if err := s.registry.Append(ctx, load.Queue.ID, ticket, true); err != nil {
			if errors.Is(err, errQueueNotOpen) {
				continue
			}
			return nil, err
		}
		return ticket, nil
	}
	least := loads[0].Queue
	return nil, apperrors.NewCapacityExceeded(least.ID, least.Capacity)
}

// ClaimNext hands the head waiting ticket of a queue to an agent, moving it
// to being-served.
func (s *AdmissionService) ClaimNext(ctx context.Context, queueID, staffID string) (*domain.CustomerTicket, error) {
	ticket, err := s.registry.Claim(ctx, queueID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:       events.EventTicketClaimed,
		TicketID:   ticket.ID,
		QueueID:    ticket.QueueID,
		PriorityID: ticket.PriorityID,
		Payload:    events.TicketClaimedPayload{StaffID: staffID},
	})
	return ticket, nil
}

// CompleteService closes out a ticket and renumbers the queue behind it.
// When the queue drains and siblings of its priority remain open, a
// queue_drained event fires so the rebalancer runs immediately instead of
// waiting for the next interval.
func (s *AdmissionService) CompleteService(ctx context.Context, ticketID string) (*domain.CustomerTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}

	served, remaining, err := s.registry.Remove(ctx, ticket.QueueID, ticket.ID, domain.TicketStatusServed)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, served.ID)
	}
	if s.metrics != nil {
		s.metrics.RecordCompletion(served.PriorityID)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventServiceCompleted,
		TicketID:   served.ID,
		QueueID:    served.QueueID,
		PriorityID: served.PriorityID,
		Payload: events.ServiceCompletedPayload{
			WaitedFor: served.ServedAt.Sub(served.AdmittedAt),
		},
	})

	if remaining == 0 {
		if siblings, err := s.registry.OpenQueues(ctx, served.PriorityID); err == nil && len(siblings) > 1 {
			s.publish(ctx, events.Event{
				Type:       events.EventQueueDrained,
				QueueID:    served.QueueID,
				PriorityID: served.PriorityID,
				Payload:    events.QueueDrainedPayload{SiblingQueues: len(siblings) - 1},
			})
		}
	}
	return served, nil
}

// CurrentPosition returns the ticket's 1-based position in its queue.
// Served and reassigned tickets are no longer positioned; the superseded-by
// link is audit-only and deliberately not followed here.
func (s *AdmissionService) CurrentPosition(ctx context.Context, ticketID string) (int, error) {
	if s.cache != nil {
		if pos, ok := s.cache.Get(ctx, ticketID); ok {
			return pos, nil
		}
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return 0, apperrors.NewPersistenceFailure(err)
	}
	if !ticket.Active() {
		return 0, apperrors.NewNotFound("ticket position", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}

	if s.cache != nil {
		s.cache.Set(ctx, ticket.ID, ticket.Position)
	}
	return ticket.Position, nil
}

// Ticket fetches a ticket by ID for the read API.
func (s *AdmissionService) Ticket(ctx context.Context, ticketID string) (*domain.CustomerTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return ticket, nil
}

func newTicket(input AdmitInput) *domain.CustomerTicket {
	return &domain.CustomerTicket{
		ID:           uuid.NewString(),
		CustomerName: input.CustomerName,
		CustomerRef:  input.CustomerRef,
		Status:       domain.TicketStatusWaiting,
		AdmittedAt:   time.Now(),
	}
}

func (s *AdmissionService) publish(ctx context.Context, event events.Event) {
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
