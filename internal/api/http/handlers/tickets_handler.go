package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/alonso06/showcase-queueapi/internal/api/dto"
	"github.com/alonso06/showcase-queueapi/internal/service"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// TicketsHandler manages the kiosk-facing ticket endpoints.
type TicketsHandler struct {
	admissions *service.AdmissionService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(admissions *service.AdmissionService) *TicketsHandler {
	return &TicketsHandler{admissions: admissions}
}

// Admit POST /tickets.
func (h *TicketsHandler) Admit(c *fiber.Ctx) error {
	var req dto.AdmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.PriorityID) == "" {
		return apperrors.NewValidationError("priority_id required", nil)
	}

	ticket, err := h.admissions.Admit(c.Context(), req.PriorityID, service.AdmitInput{
		CustomerName: strings.TrimSpace(req.CustomerName),
		CustomerRef:  strings.TrimSpace(req.CustomerRef),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.admissions.Ticket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetPosition GET /tickets/:id/position.
func (h *TicketsHandler) GetPosition(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	position, err := h.admissions.CurrentPosition(c.Context(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PositionResponse{TicketID: ticketID, Position: position}})
}

// Complete POST /staff/tickets/:id/complete.
func (h *TicketsHandler) Complete(c *fiber.Ctx) error {
	ticket, err := h.admissions.CompleteService(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}
