package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketAdmitted     EventType = "ticket_admitted"
	EventTicketClaimed      EventType = "ticket_claimed"
	EventServiceCompleted   EventType = "service_completed"
	EventTicketReassigned   EventType = "ticket_reassigned"
	EventQueueDrained       EventType = "queue_drained"
	EventRebalanceCompleted EventType = "rebalance_completed"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TicketID   string      `json:"ticket_id,omitempty"`
	QueueID    string      `json:"queue_id,omitempty"`
	PriorityID string      `json:"priority_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// TicketAdmittedPayload payload.
type TicketAdmittedPayload struct {
	Position     int    `json:"position"`
	CustomerName string `json:"customer_name,omitempty"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	StaffID string `json:"staff_id"`
}

// ServiceCompletedPayload payload.
type ServiceCompletedPayload struct {
	WaitedFor time.Duration `json:"waited_for"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	FromQueueID  string `json:"from_queue_id"`
	ToQueueID    string `json:"to_queue_id"`
	NewTicketID  string `json:"new_ticket_id"`
	NewPosition  int    `json:"new_position"`
	SupersededID string `json:"superseded_id"`
}

// QueueDrainedPayload payload.
type QueueDrainedPayload struct {
	SiblingQueues int `json:"sibling_queues"`
}

// RebalanceCompletedPayload payload.
type RebalanceCompletedPayload struct {
	Moved   int `json:"moved"`
	Skipped int `json:"skipped"`
}
