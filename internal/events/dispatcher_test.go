package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToAllSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var first, second int
	dispatcher.Subscribe(EventTicketAdmitted, func(_ context.Context, _ Event) error {
		first++
		return nil
	})
	dispatcher.Subscribe(EventTicketAdmitted, func(_ context.Context, _ Event) error {
		second++
		return errors.New("handler failure")
	})
	dispatcher.Subscribe(EventTicketClaimed, func(_ context.Context, _ Event) error {
		t.Error("handler for another event type invoked")
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventTicketAdmitted}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := dispatcher.Publish(context.Background(), Event{Type: EventTicketAdmitted}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if first != 2 || second != 2 {
		t.Fatalf("deliveries = %d/%d, want 2/2 (errors must not stop delivery)", first, second)
	}
}
