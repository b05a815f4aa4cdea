package services

import (
	"context"
	"log/slog"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/ports"
)

// AdminService backs the user management page. The role check uses the
// stored role tag and only decides what the client offers; the backend
// authorizes every call.
type AdminService struct {
	users   ports.UserAPI
	session ports.SessionAccessor
	nav     ports.Navigator
	logger  *slog.Logger
}

func NewAdminService(users ports.UserAPI, session ports.SessionAccessor, nav ports.Navigator, logger *slog.Logger) *AdminService {
	return &AdminService{
		users:   users,
		session: session,
		nav:     nav,
		logger:  logger.With("component", "admin"),
	}
}

func (s *AdminService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx, filter)
}

// DeleteUsers removes users in one call. An empty selection is a no-op.
func (s *AdminService) DeleteUsers(ctx context.Context, ids []string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.users.BulkDeleteUsers(ctx, ids); err != nil {
		return err
	}
	s.logger.Info("users deleted", "count", len(ids))
	return nil
}

// requireAdmin sends non-admins back to the dashboard.
func (s *AdminService) requireAdmin() error {
	cred, ok := s.session.Credential()
	if !ok {
		return apperrors.ErrNotAuthenticated
	}
	if cred.Role != domain.RoleAdmin {
		s.nav.Navigate(domain.PathDashboard)
		return apperrors.ErrForbidden
	}
	return nil
}
