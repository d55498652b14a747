package dto

import (
	"time"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Role  domain.StaffRole `json:"role"`
}

// AuthResponse carries an issued token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
