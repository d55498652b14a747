package domain

import "time"

// StaffRole enumerates counter-staff permission tiers.
type StaffRole string

const (
	StaffRoleAgent      StaffRole = "AGENT"
	StaffRoleSupervisor StaffRole = "SUPERVISOR"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// StaffMember is a counter agent or supervisor of the institution.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
