package service

import (
	"context"
	"testing"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

func TestRenumberClosesGaps(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)
	tracker := NewPositionTracker(f.store.Tickets(), nil)

	tickets := make([]*domain.CustomerTicket, 4)
	for i := range tickets {
		tickets[i] = f.mustAppend(t, "q1")
	}

	if _, _, err := f.registry.Remove(context.Background(), "q1", tickets[1].ID, domain.TicketStatusServed); err != nil {
		t.Fatalf("remove: %v", err)
	}

	active := f.activeTickets(t, "q1")
	assertContiguous(t, active)
	wantOrder := []string{tickets[0].ID, tickets[2].ID, tickets[3].ID}
	for i, want := range wantOrder {
		if active[i].ID != want {
			t.Fatalf("order[%d] = %s, want %s", i, active[i].ID, want)
		}
	}

	// Renumber on an already contiguous queue changes nothing.
	if err := tracker.Renumber(context.Background(), "q1"); err != nil {
		t.Fatalf("renumber: %v", err)
	}
	again := f.activeTickets(t, "q1")
	for i := range active {
		if again[i].ID != active[i].ID || again[i].Position != active[i].Position {
			t.Fatalf("renumber was not idempotent at index %d", i)
		}
	}
}

func TestRenumberEmptyQueue(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)
	tracker := NewPositionTracker(f.store.Tickets(), nil)

	if err := tracker.Renumber(context.Background(), "q1"); err != nil {
		t.Fatalf("renumber empty queue: %v", err)
	}
}

// fakeCache records invalidations so renumbering can be checked against
// cached reads.
type fakeCache struct {
	values      map[string]int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]int)}
}

func (c *fakeCache) Get(_ context.Context, ticketID string) (int, bool) {
	pos, ok := c.values[ticketID]
	return pos, ok
}

func (c *fakeCache) Set(_ context.Context, ticketID string, position int) {
	c.values[ticketID] = position
}

func (c *fakeCache) Invalidate(_ context.Context, ticketIDs ...string) {
	for _, id := range ticketIDs {
		delete(c.values, id)
		c.invalidated = append(c.invalidated, id)
	}
}

func TestRenumberInvalidatesStaleCacheEntries(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)
	cache := newFakeCache()
	tracker := NewPositionTracker(f.store.Tickets(), cache)

	first := f.mustAppend(t, "q1")
	second := f.mustAppend(t, "q1")
	cache.Set(context.Background(), first.ID, 1)
	cache.Set(context.Background(), second.ID, 2)

	// Take the head out from under the tracker, leaving a gap at position 1.
	first.Status = domain.TicketStatusServed
	if err := f.store.Tickets().Update(context.Background(), first); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := tracker.Renumber(context.Background(), "q1"); err != nil {
		t.Fatalf("renumber: %v", err)
	}

	if _, ok := cache.Get(context.Background(), second.ID); ok {
		t.Fatal("stale cached position survived renumbering")
	}
}
