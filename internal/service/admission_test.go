package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alonso06/showcase-queueapi/internal/domain"
	"github.com/alonso06/showcase-queueapi/internal/events"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// eventCollector records published events for assertions.
type eventCollector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *eventCollector) handle(_ context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *eventCollector) ofType(eventType events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []events.Event
	for _, event := range c.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

func collectEvents(f *engineFixture, types ...events.EventType) *eventCollector {
	collector := &eventCollector{}
	for _, eventType := range types {
		f.dispatcher.Subscribe(eventType, collector.handle)
	}
	return collector
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("error %v is not a domain error", err)
	}
	if domainErr.Code != code {
		t.Fatalf("error code = %s, want %s", domainErr.Code, code)
	}
}

func TestAdmitPicksLeastLoadedQueue(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "qa", "standard", 10)
	f.mustCreateQueue(t, "qb", "standard", 10)
	f.mustCreateQueue(t, "qc", "standard", 10)

	for i := 0; i < 3; i++ {
		f.mustAppend(t, "qa")
	}
	f.mustAppend(t, "qb")
	f.mustAppend(t, "qc")
	f.mustAppend(t, "qc")

	ticket, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{CustomerName: "walk-in"})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if ticket.QueueID != "qb" {
		t.Fatalf("admitted to %s, want qb", ticket.QueueID)
	}
	if ticket.Position != 2 {
		t.Fatalf("position = %d, want 2", ticket.Position)
	}
	if ticket.PriorityID != "standard" {
		t.Fatalf("priority = %s, want standard", ticket.PriorityID)
	}
}

func TestAdmitTieBreaksByQueueID(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q2", "standard", 10)
	f.mustCreateQueue(t, "q1", "standard", 10)

	ticket, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if ticket.QueueID != "q1" {
		t.Fatalf("tie broke to %s, want q1", ticket.QueueID)
	}
}

func TestAdmitUnknownPriority(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())

	_, err := f.admissions.Admit(context.Background(), "platinum", AdmitInput{})
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestAdmitNoOpenQueue(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)
	if err := f.registry.CloseQueue(context.Background(), "q1"); err != nil {
		t.Fatalf("close queue: %v", err)
	}

	_, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	assertDomainCode(t, err, "NO_QUEUE_AVAILABLE")

	// A rejected admission must leave no ticket behind.
	if active := f.activeTickets(t, "q1"); len(active) != 0 {
		t.Fatalf("rejected admission left %d tickets", len(active))
	}
}

func TestAdmitStaleSnapshotAfterQueueClose(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)

	level, err := f.admissions.catalog.Resolve(context.Background(), "standard")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	loads, err := f.registry.OpenQueues(context.Background(), "standard")
	if err != nil {
		t.Fatalf("open queues: %v", err)
	}
	// The queue closes between the load snapshot and the locked append.
	if err := f.registry.CloseQueue(context.Background(), "q1"); err != nil {
		t.Fatalf("close queue: %v", err)
	}

	_, err = f.admissions.place(context.Background(), level, loads, AdmitInput{})
	assertDomainCode(t, err, "NO_QUEUE_AVAILABLE")

	if active := f.activeTickets(t, "q1"); len(active) != 0 {
		t.Fatalf("rejected admission left %d tickets", len(active))
	}
}

func TestAdmitAllQueuesFull(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 1)
	f.mustCreateQueue(t, "q2", "standard", 1)
	f.mustAppend(t, "q1")
	f.mustAppend(t, "q2")

	_, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	assertDomainCode(t, err, "CAPACITY_EXCEEDED")
}

func TestAdmitOverflowFallback(t *testing.T) {
	cfg := defaultEngineConfig()
	cfg.OverflowQueueIDs = []string{"q2"}
	f := newEngineFixture(t, cfg)
	f.mustCreateQueue(t, "q1", "standard", 1)
	f.mustCreateQueue(t, "q2", "standard", 1)
	f.mustAppend(t, "q1")
	f.mustAppend(t, "q2")

	ticket, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	if err != nil {
		t.Fatalf("overflow admit: %v", err)
	}
	if ticket.QueueID != "q2" {
		t.Fatalf("overflow went to %s, want q2", ticket.QueueID)
	}
	if ticket.Position != 2 {
		t.Fatalf("overflow position = %d, want 2", ticket.Position)
	}
}

func TestAdmitPublishesEvent(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)
	collector := collectEvents(f, events.EventTicketAdmitted)

	ticket, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{CustomerName: "walk-in"})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	admitted := collector.ofType(events.EventTicketAdmitted)
	if len(admitted) != 1 {
		t.Fatalf("admitted events = %d, want 1", len(admitted))
	}
	if admitted[0].TicketID != ticket.ID || admitted[0].QueueID != "q1" {
		t.Fatalf("event ticket=%s queue=%s", admitted[0].TicketID, admitted[0].QueueID)
	}
}

func TestCompleteServiceRenumbersQueue(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)

	head, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	second, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	if _, err := f.admissions.ClaimNext(context.Background(), "q1", "staff-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	served, err := f.admissions.CompleteService(context.Background(), head.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if served.Status != domain.TicketStatusServed || served.ServedAt == nil {
		t.Fatalf("served status=%s servedAt=%v", served.Status, served.ServedAt)
	}

	pos, err := f.admissions.CurrentPosition(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos != 1 {
		t.Fatalf("second ticket position = %d, want 1", pos)
	}
}

func TestCompleteServiceEmitsQueueDrained(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)
	f.mustCreateQueue(t, "q2", "standard", 10)
	collector := collectEvents(f, events.EventQueueDrained)

	ticket, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, err := f.admissions.CompleteService(context.Background(), ticket.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	drained := collector.ofType(events.EventQueueDrained)
	if len(drained) != 1 {
		t.Fatalf("drained events = %d, want 1", len(drained))
	}
	if drained[0].QueueID != ticket.QueueID {
		t.Fatalf("drained queue = %s, want %s", drained[0].QueueID, ticket.QueueID)
	}
}

func TestCurrentPositionInactiveTicket(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())
	f.mustCreateQueue(t, "q1", "standard", 10)

	ticket, err := f.admissions.Admit(context.Background(), "standard", AdmitInput{})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, err := f.admissions.CompleteService(context.Background(), ticket.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = f.admissions.CurrentPosition(context.Background(), ticket.ID)
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestCurrentPositionUnknownTicket(t *testing.T) {
	f := newEngineFixture(t, defaultEngineConfig())

	_, err := f.admissions.CurrentPosition(context.Background(), "missing")
	assertDomainCode(t, err, "NOT_FOUND")
}
