package repository

import (
	"context"
	"errors"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

// Sentinel errors shared by every repository implementation. The pgx-backed
// repositories translate driver errors into these before returning.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrVersionConflict = errors.New("version conflict")
)

// PriorityRepository reads the priority catalog. The catalog is administered
// through conventional CRUD outside the engine, so no mutation methods exist
// here.
type PriorityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.PriorityLevel, error)
	List(ctx context.Context) ([]domain.PriorityLevel, error)
}

// QueueRepository persists queue entities.
type QueueRepository interface {
	Create(ctx context.Context, queue *domain.Queue) error
	Update(ctx context.Context, queue *domain.Queue) error
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	ListOpenByPriority(ctx context.Context, priorityID string) ([]domain.Queue, error)
}

// TicketRepository persists customer tickets.
//
// Update enforces optimistic versioning: it fails with ErrVersionConflict
// when the stored version differs from the one on the passed ticket, and
// bumps the version on success. UpdatePosition is the renumbering write path
// and deliberately skips the version check so that position compaction never
// races status transitions into spurious conflicts.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.CustomerTicket) error
	Update(ctx context.Context, ticket *domain.CustomerTicket) error
	UpdatePosition(ctx context.Context, id string, position int) error
	GetByID(ctx context.Context, id string) (*domain.CustomerTicket, error)
	ListActiveByQueue(ctx context.Context, queueID string) ([]domain.CustomerTicket, error)
	CountActiveByQueue(ctx context.Context, queueID string) (int, error)
}

// StaffRepository persists staff accounts for the operator API.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
}
