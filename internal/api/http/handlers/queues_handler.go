package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/alonso06/showcase-queueapi/internal/api/dto"
	"github.com/alonso06/showcase-queueapi/internal/auth"
	"github.com/alonso06/showcase-queueapi/internal/observability"
	"github.com/alonso06/showcase-queueapi/internal/service"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// QueuesHandler exposes the staff queue operations.
type QueuesHandler struct {
	registry   *service.QueueRegistry
	admissions *service.AdmissionService
	rebalancer *service.RebalanceService
	metrics    *observability.Metrics
}

// NewQueuesHandler constructs handler.
func NewQueuesHandler(registry *service.QueueRegistry, admissions *service.AdmissionService, rebalancer *service.RebalanceService, metrics *observability.Metrics) *QueuesHandler {
	return &QueuesHandler{
		registry:   registry,
		admissions: admissions,
		rebalancer: rebalancer,
		metrics:    metrics,
	}
}

// ListQueues GET /staff/queues?priority=.
func (h *QueuesHandler) ListQueues(c *fiber.Ctx) error {
	priorityID := strings.TrimSpace(c.Query("priority"))
	if priorityID == "" {
		return apperrors.NewValidationError("priority query parameter required", nil)
	}
	loads, err := h.registry.OpenQueues(c.Context(), priorityID)
	if err != nil {
		return err
	}
	items := make([]dto.QueueLoadResponse, 0, len(loads))
	for _, load := range loads {
		items = append(items, dto.QueueLoadResponse{
			QueueID:    load.Queue.ID,
			PriorityID: load.Queue.PriorityID,
			Capacity:   load.Queue.Capacity,
			Status:     load.Queue.Status,
			Occupancy:  load.Occupancy,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateQueue POST /staff/queues.
func (h *QueuesHandler) CreateQueue(c *fiber.Ctx) error {
	var req dto.CreateQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.QueueID == "" || req.PriorityID == "" {
		return apperrors.NewValidationError("queue_id and priority_id required", nil)
	}
	queue, err := h.registry.CreateQueue(c.Context(), req.QueueID, req.PriorityID, req.Capacity)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.QueueLoadResponse{
		QueueID:    queue.ID,
		PriorityID: queue.PriorityID,
		Capacity:   queue.Capacity,
		Status:     queue.Status,
	}})
}

// CloseQueue POST /staff/queues/:id/close.
func (h *QueuesHandler) CloseQueue(c *fiber.Ctx) error {
	if err := h.registry.CloseQueue(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ClaimNext POST /staff/queues/:id/claim.
func (h *QueuesHandler) ClaimNext(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	ticket, err := h.admissions.ClaimNext(c.Context(), c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// TriggerRebalance POST /staff/priorities/:id/rebalance.
func (h *QueuesHandler) TriggerRebalance(c *fiber.Ctx) error {
	priorityID := c.Params("id")
	summary, err := h.rebalancer.TriggerRebalance(c.Context(), priorityID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RebalanceSummaryResponse{
		PriorityID: priorityID,
		Moved:      summary.Moved,
		Skipped:    summary.Skipped,
	}})
}

// Stats GET /staff/stats.
func (h *QueuesHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
