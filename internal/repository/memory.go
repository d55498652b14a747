package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

// MemoryStore bundles in-memory repository implementations sharing one lock.
// It backs the service when POSTGRES_DSN is not configured and serves as the
// test fixture for the engine packages. Semantics mirror the pgx
// repositories, including optimistic versioning on ticket updates.
type MemoryStore struct {
	mu         sync.RWMutex
	priorities map[string]domain.PriorityLevel
	queues     map[string]domain.Queue
	tickets    map[string]domain.CustomerTicket
	staff      map[string]domain.StaffMember
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		priorities: make(map[string]domain.PriorityLevel),
		queues:     make(map[string]domain.Queue),
		tickets:    make(map[string]domain.CustomerTicket),
		staff:      make(map[string]domain.StaffMember),
	}
}

// Priorities returns the catalog repository view of the store.
func (s *MemoryStore) Priorities() PriorityRepository { return (*memoryPriorityRepo)(s) }

// Queues returns the queue repository view of the store.
func (s *MemoryStore) Queues() QueueRepository { return (*memoryQueueRepo)(s) }

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return (*memoryTicketRepo)(s) }

// Staff returns the staff repository view of the store.
func (s *MemoryStore) Staff() StaffRepository { return (*memoryStaffRepo)(s) }

// SeedPriority inserts a catalog entry directly; catalog edits are
// administrative and outside the engine's operation set.
func (s *MemoryStore) SeedPriority(level domain.PriorityLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorities[level.ID] = level
}

type memoryPriorityRepo MemoryStore

func (r *memoryPriorityRepo) GetByID(_ context.Context, id string) (*domain.PriorityLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	level, ok := r.priorities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &level, nil
}

func (r *memoryPriorityRepo) List(_ context.Context) ([]domain.PriorityLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.PriorityLevel, 0, len(r.priorities))
	for _, level := range r.priorities {
		result = append(result, level)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Rank < result[j].Rank })
	return result, nil
}

type memoryQueueRepo MemoryStore

func (r *memoryQueueRepo) Create(_ context.Context, queue *domain.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Same uniqueness guarantee as the primary key in the durable store.
	if _, exists := r.queues[queue.ID]; exists {
		return ErrAlreadyExists
	}
	now := time.Now()
	queue.CreatedAt = now
	queue.UpdatedAt = now
	r.queues[queue.ID] = *queue
	return nil
}

func (r *memoryQueueRepo) Update(_ context.Context, queue *domain.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.queues[queue.ID]; !ok {
		return ErrNotFound
	}
	queue.UpdatedAt = time.Now()
	r.queues[queue.ID] = *queue
	return nil
}

func (r *memoryQueueRepo) GetByID(_ context.Context, id string) (*domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	queue, ok := r.queues[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &queue, nil
}

func (r *memoryQueueRepo) ListOpenByPriority(_ context.Context, priorityID string) ([]domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Queue
	for _, queue := range r.queues {
		if queue.PriorityID == priorityID && queue.Status == domain.QueueStatusOpen {
			result = append(result, queue)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type memoryTicketRepo MemoryStore

func (r *memoryTicketRepo) Create(_ context.Context, ticket *domain.CustomerTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTicketRepo) Update(_ context.Context, ticket *domain.CustomerTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTicketRepo) UpdatePosition(_ context.Context, id string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return ErrNotFound
	}
	stored.Position = position
	stored.UpdatedAt = time.Now()
	r.tickets[id] = stored
	return nil
}

func (r *memoryTicketRepo) GetByID(_ context.Context, id string) (*domain.CustomerTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (r *memoryTicketRepo) ListActiveByQueue(_ context.Context, queueID string) ([]domain.CustomerTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.CustomerTicket
	for _, ticket := range r.tickets {
		if ticket.QueueID == queueID && ticket.Active() {
			result = append(result, ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].AdmittedAt.Before(result[j].AdmittedAt)
	})
	return result, nil
}

func (r *memoryTicketRepo) CountActiveByQueue(_ context.Context, queueID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, ticket := range r.tickets {
		if ticket.QueueID == queueID && ticket.Active() {
			count++
		}
	}
	return count, nil
}

type memoryStaffRepo MemoryStore

func (r *memoryStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	r.staff[staff.ID] = *staff
	return nil
}

func (r *memoryStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	staff, ok := r.staff[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &staff, nil
}

func (r *memoryStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, staff := range r.staff {
		if strings.EqualFold(staff.Email, email) {
			return &staff, nil
		}
	}
	return nil, ErrNotFound
}
