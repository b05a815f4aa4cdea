package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/ports"
)

// AuthService runs the login and logout flows. It is the only writer of
// the credential besides the session's own expiry path.
type AuthService struct {
	api     ports.AuthAPI
	session ports.SessionLifecycle
	nav     ports.Navigator
	logger  *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(api ports.AuthAPI, session ports.SessionLifecycle, nav ports.Navigator, logger *slog.Logger) *AuthService {
	return &AuthService{
		api:     api,
		session: session,
		nav:     nav,
		logger:  logger.With("component", "auth"),
	}
}

// Login authenticates, stores the credential with its cookie mirror and
// moves to the dashboard.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Credential, error) {
	verrs := apperrors.NewValidationErrors()
	if strings.TrimSpace(username) == "" {
		verrs.Add("username", "This field is required")
	}
	if password == "" {
		verrs.Add("password", "This field is required")
	}
	if verrs.HasErrors() {
		return domain.Credential{}, verrs
	}

	resp, err := s.api.Login(ctx, domain.LoginRequest{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		return domain.Credential{}, err
	}

	cred := resp.Credential()
	if cred.IsZero() {
		return domain.Credential{}, fmt.Errorf("login response has no token: %w", apperrors.ErrInvalidCredentials)
	}
	if err := s.session.Begin(cred); err != nil {
		return domain.Credential{}, err
	}

	s.logger.Info("logged in", "role", cred.Role)
	s.nav.Navigate(domain.PathDashboard)
	return cred, nil
}

// Logout destroys the credential. The session navigates to the login
// surface.
func (s *AuthService) Logout() error {
	if err := s.session.End(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}
