package service

import (
	"context"

	"github.com/alonso06/showcase-queueapi/internal/repository"
)

// PositionCache is a best-effort lookup cache for ticket positions. A nil
// cache is valid and disables caching.
type PositionCache interface {
	Get(ctx context.Context, ticketID string) (int, bool)
	Set(ctx context.Context, ticketID string, position int)
	Invalidate(ctx context.Context, ticketIDs ...string)
}

// PositionTracker re-derives order numbers from current sequence order.
// Renumber is a pure function of queue state and idempotent; callers must
// hold the queue's exclusion scope.
type PositionTracker struct {
	tickets repository.TicketRepository
	cache   PositionCache
}

// NewPositionTracker builds the tracker.
func NewPositionTracker(tickets repository.TicketRepository, cache PositionCache) *PositionTracker {
	return &PositionTracker{tickets: tickets, cache: cache}
}

// Renumber rewrites the positions of a queue's active tickets to the
// contiguous sequence 1..N, preserving their relative order (position first,
// admission time as the stable tie-break).
func (t *PositionTracker) Renumber(ctx context.Context, queueID string) error {
	active, err := t.tickets.ListActiveByQueue(ctx, queueID)
	if err != nil {
		return err
	}

	var stale []string
	for i := range active {
		want := i + 1
		if active[i].Position == want {
			continue
		}
		if err := t.tickets.UpdatePosition(ctx, active[i].ID, want); err != nil {
			return err
		}
		stale = append(stale, active[i].ID)
	}
	if t.cache != nil && len(stale) > 0 {
		t.cache.Invalidate(ctx, stale...)
	}
	return nil
}

// Forget drops cached positions for tickets that left their queue.
func (t *PositionTracker) Forget(ctx context.Context, ticketIDs ...string) {
	if t.cache != nil && len(ticketIDs) > 0 {
		t.cache.Invalidate(ctx, ticketIDs...)
	}
}
