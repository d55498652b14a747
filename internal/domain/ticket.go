package domain

import "time"

// TicketStatus enumerates lifecycle states for customer tickets.
type TicketStatus string

const (
	TicketStatusWaiting     TicketStatus = "WAITING"
	TicketStatusBeingServed TicketStatus = "BEING_SERVED"
	TicketStatusServed      TicketStatus = "SERVED"
	TicketStatusReassigned  TicketStatus = "REASSIGNED"
)

// CustomerTicket records one customer's admission to a specific queue.
//
// Position is the 1-based order number within the owning queue; positions of
// a queue's active tickets are always contiguous with no gaps. PriorityID is
// copied from the queue at admission time and never changes afterwards.
// AdmittedAt is carried forward when the rebalancer moves a ticket, so the
// customer keeps their FIFO standing against the destination queue.
// SupersededBy links a reassigned record to its replacement; the link is an
// audit back-reference only and is never consulted for scheduling.
type CustomerTicket struct {
	ID           string
	QueueID      string
	PriorityID   string
	CustomerName string
	CustomerRef  string
	Position     int
	Status       TicketStatus
	AdmittedAt   time.Time
	ServedAt     *time.Time
	SupersededBy *string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the ticket still occupies a slot in its queue.
func (t *CustomerTicket) Active() bool {
	return t.Status == TicketStatusWaiting || t.Status == TicketStatusBeingServed
}
