// Package session implements the Session Accessor: the single owner of the
// credential and the only path for authenticated requests.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lorrc/devexchange/internal/auth"
	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/ports"
	"github.com/lorrc/devexchange/internal/infrastructure/metrics"
)

var (
	_ ports.SessionAccessor  = (*Session)(nil)
	_ ports.SessionLifecycle = (*Session)(nil)
)

// Session holds the credential for one client process. The credential has
// a single writer: Begin, End and the expiry path.
type Session struct {
	store  ports.CredentialStore
	mirror *CookieMirror
	nav    ports.Navigator
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	cred domain.Credential
	// generation changes whenever the credential is replaced or dropped,
	// so rejections from requests sent under an older credential are
	// ignored.
	generation uint64
	expired    chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the clock used for the local token expiry check.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session and restores the stored credential, if any.
func New(
	store ports.CredentialStore,
	mirror *CookieMirror,
	nav ports.Navigator,
	client *http.Client,
	logger *slog.Logger,
	opts ...Option,
) (*Session, error) {
	if client == nil {
		client = http.DefaultClient
	}

	s := &Session{
		store:   store,
		mirror:  mirror,
		nav:     nav,
		client:  client,
		logger:  logger.With("component", "session"),
		now:     time.Now,
		expired: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	cred, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	s.cred = cred
	if !cred.IsZero() && s.mirror != nil {
		s.mirror.Set(cred.AccessToken)
	}

	return s, nil
}

// Begin installs a freshly issued credential.
func (s *Session) Begin(cred domain.Credential) error {
	if cred.IsZero() {
		return apperrors.ErrNotAuthenticated
	}
	if err := s.store.Save(cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	s.mu.Lock()
	s.cred = cred
	s.generation++
	s.mu.Unlock()

	if s.mirror != nil {
		s.mirror.Set(cred.AccessToken)
	}
	if claims, err := auth.Inspect(cred.AccessToken); err == nil {
		s.logger.Debug("session started", "user", claims.Username(), "role", cred.Role)
	} else {
		s.logger.Debug("session started", "role", cred.Role)
	}
	return nil
}

// End destroys the credential on explicit logout and navigates to the
// login surface without the expired flag.
func (s *Session) End() error {
	s.mu.Lock()
	s.cred = domain.Credential{}
	s.generation++
	s.mu.Unlock()

	err := s.erase()
	s.nav.Navigate(domain.PathLogin)
	return err
}

// Credential returns the current credential.
func (s *Session) Credential() (domain.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, !s.cred.IsZero()
}

// Expired returns a channel closed when the current credential expires.
func (s *Session) Expired() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Do sends req with the bearer credential. An authorization rejection, or
// a token whose exp claim has passed, clears the credential and the cookie
// mirror, navigates to the login surface with the expired flag, and
// returns ErrSessionExpired. Concurrent rejections navigate once.
func (s *Session) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	cred, generation := s.cred, s.generation
	s.mu.Unlock()

	if cred.IsZero() {
		return nil, apperrors.ErrNotAuthenticated
	}

	if auth.Expired(cred.AccessToken, s.now()) {
		s.expire(generation)
		return nil, &apperrors.RequestError{
			Err:    apperrors.ErrSessionExpired,
			Method: req.Method,
			Path:   req.URL.Path,
			Detail: "token expired",
		}
	}

	out := req.Clone(ctx)
	out.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if out.Body != nil && out.Header.Get("Content-Type") == "" {
		out.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(out)
	if err != nil {
		return nil, apperrors.NewTransportError(req.Method, req.URL.Path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		s.expire(generation)
		return nil, apperrors.NewRequestError(req.Method, req.URL.Path, resp.StatusCode, "")
	}

	return resp, nil
}

// expire drops the credential if it is still the one of generation.
func (s *Session) expire(generation uint64) {
	s.mu.Lock()
	if generation != s.generation || s.cred.IsZero() {
		s.mu.Unlock()
		return
	}
	s.cred = domain.Credential{}
	s.generation++
	close(s.expired)
	s.expired = make(chan struct{})
	s.mu.Unlock()

	metrics.SessionExpirations.Inc()
	if err := s.erase(); err != nil {
		s.logger.Warn("failed to erase expired credential", "error", err)
	}
	s.logger.Debug("session expired")
	s.nav.Navigate(domain.PathLoginExpired)
}

func (s *Session) erase() error {
	if s.mirror != nil {
		s.mirror.Clear()
	}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
