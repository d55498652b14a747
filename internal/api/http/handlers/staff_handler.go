package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/alonso06/showcase-queueapi/internal/api/dto"
	"github.com/alonso06/showcase-queueapi/internal/service"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// StaffHandler exposes staff auth endpoints.
type StaffHandler struct {
	authService *service.AuthService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService) *StaffHandler {
	return &StaffHandler{authService: authService}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	staff, token, exp, err := h.authService.LoginStaff(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": dto.StaffResponse{
				ID:    staff.ID,
				Name:  staff.Name,
				Email: staff.Email,
				Role:  staff.Role,
			},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
