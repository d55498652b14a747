package service

import (
	"context"
	"errors"
	"time"

	"github.com/alonso06/showcase-queueapi/internal/auth"
	"github.com/alonso06/showcase-queueapi/internal/config"
	"github.com/alonso06/showcase-queueapi/internal/domain"
	"github.com/alonso06/showcase-queueapi/internal/repository"
	apperrors "github.com/alonso06/showcase-queueapi/pkg/util/errorutil"
)

// AuthService coordinates staff login. The engine itself never checks
// permissions; it trusts that calls reaching it passed this boundary.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, staff repository.StaffRepository) *AuthService {
	return &AuthService{
		staff:      staff,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// LoginStaff authenticates a staff member and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewPersistenceFailure(err)
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return staff, token, exp, nil
}
