package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/alonso06/showcase-queueapi/internal/domain"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// RequireStaffRole ensures the staff principal has one of the allowed roles.
// With no arguments it only requires an authenticated staff member.
func RequireStaffRole(allowed ...domain.StaffRole) fiber.Handler {
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return apperrors.NewForbidden("staff role required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Staff.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
