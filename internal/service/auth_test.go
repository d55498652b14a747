package service

import (
	"context"
	"testing"

	"github.com/alonso06/showcase-queueapi/internal/auth"
	"github.com/alonso06/showcase-queueapi/internal/config"
	"github.com/alonso06/showcase-queueapi/internal/domain"
	"github.com/alonso06/showcase-queueapi/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	cfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4}
	return NewAuthService(cfg, store.Staff()), store
}

func seedStaff(t *testing.T, store *repository.MemoryStore, email, password string, active bool) *domain.StaffMember {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	member := &domain.StaffMember{
		Name:         "Agent",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.StaffRoleAgent,
		Active:       active,
	}
	if err := store.Staff().Create(context.Background(), member); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return member
}

func TestLoginStaffSuccess(t *testing.T) {
	svc, store := newAuthFixture(t)
	member := seedStaff(t, store, "agent@example.org", "hunter2", true)

	staff, token, exp, err := svc.LoginStaff(context.Background(), "agent@example.org", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if staff.ID != member.ID {
		t.Fatalf("logged in as %s, want %s", staff.ID, member.ID)
	}
	if token == "" || exp.IsZero() {
		t.Fatal("token or expiry missing")
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.StaffID != member.ID {
		t.Fatalf("token subject = %s, want %s", claims.StaffID, member.ID)
	}
}

func TestLoginStaffBadCredentials(t *testing.T) {
	svc, store := newAuthFixture(t)
	seedStaff(t, store, "agent@example.org", "hunter2", true)

	if _, _, _, err := svc.LoginStaff(context.Background(), "agent@example.org", "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	} else {
		assertDomainCode(t, err, "UNAUTHORIZED")
	}

	if _, _, _, err := svc.LoginStaff(context.Background(), "nobody@example.org", "hunter2"); err == nil {
		t.Fatal("unknown email accepted")
	} else {
		assertDomainCode(t, err, "UNAUTHORIZED")
	}
}

func TestLoginStaffInactive(t *testing.T) {
	svc, store := newAuthFixture(t)
	seedStaff(t, store, "agent@example.org", "hunter2", false)

	_, _, _, err := svc.LoginStaff(context.Background(), "agent@example.org", "hunter2")
	assertDomainCode(t, err, "FORBIDDEN")
}
