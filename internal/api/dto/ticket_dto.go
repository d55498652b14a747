package dto

import (
	"time"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

// AdmitTicketRequest payload for the kiosk admission endpoint.
type AdmitTicketRequest struct {
	PriorityID   string `json:"priority_id"`
	CustomerName string `json:"customer_name"`
	CustomerRef  string `json:"customer_ref,omitempty"`
}

// TicketResponse is the public view of a customer ticket.
type TicketResponse struct {
	ID           string              `json:"id"`
	QueueID      string              `json:"queue_id"`
	PriorityID   string              `json:"priority_id"`
	CustomerName string              `json:"customer_name,omitempty"`
	Position     int                 `json:"position"`
	Status       domain.TicketStatus `json:"status"`
	AdmittedAt   time.Time           `json:"admitted_at"`
	ServedAt     *time.Time          `json:"served_at,omitempty"`
	SupersededBy *string             `json:"superseded_by,omitempty"`
}

// PositionResponse answers the kiosk position lookup.
type PositionResponse struct {
	TicketID string `json:"ticket_id"`
	Position int    `json:"position"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.CustomerTicket) TicketResponse {
	return TicketResponse{
		ID:           ticket.ID,
		QueueID:      ticket.QueueID,
		PriorityID:   ticket.PriorityID,
		CustomerName: ticket.CustomerName,
		Position:     ticket.Position,
		Status:       ticket.Status,
		AdmittedAt:   ticket.AdmittedAt,
		ServedAt:     ticket.ServedAt,
		SupersededBy: ticket.SupersededBy,
	}
}
