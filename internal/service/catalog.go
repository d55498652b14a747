package service

import (
	"context"
	"errors"

	"github.com/alonso06/showcase-queueapi/internal/domain"
	"github.com/alonso06/showcase-queueapi/internal/repository"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// PriorityCatalog resolves priority levels and their total-order ranks.
// Catalog edits are administrative CRUD outside the engine; this surface is
// read-only.
type PriorityCatalog struct {
	priorities repository.PriorityRepository
}

// NewPriorityCatalog builds the catalog.
func NewPriorityCatalog(priorities repository.PriorityRepository) *PriorityCatalog {
	return &PriorityCatalog{priorities: priorities}
}

// Resolve returns the priority level for the given identifier.
func (c *PriorityCatalog) Resolve(ctx context.Context, priorityID string) (*domain.PriorityLevel, error) {
	level, err := c.priorities.GetByID(ctx, priorityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("priority level", map[string]any{"priority_id": priorityID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return level, nil
}

// RankOf returns the total-order rank of the priority; lower is served first.
func (c *PriorityCatalog) RankOf(ctx context.Context, priorityID string) (int, error) {
	level, err := c.Resolve(ctx, priorityID)
	if err != nil {
		return 0, err
	}
	return level.Rank, nil
}

// List returns all catalog entries ordered by rank.
func (c *PriorityCatalog) List(ctx context.Context) ([]domain.PriorityLevel, error) {
	levels, err := c.priorities.List(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return levels, nil
}
