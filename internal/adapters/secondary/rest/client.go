// Package rest is the typed client for the backend REST collaborator.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/ports"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
	"github.com/lorrc/devexchange/internal/infrastructure/metrics"
)

var (
	_ ports.AuthAPI         = (*Client)(nil)
	_ ports.TicketAPI       = (*Client)(nil)
	_ ports.CommentAPI      = (*Client)(nil)
	_ ports.NotificationAPI = (*Client)(nil)
	_ ports.UserAPI         = (*Client)(nil)
	_ ports.UploadAPI       = (*Client)(nil)
)

// maxErrorBody bounds how much of an error response is read for detail.
const maxErrorBody = 4 << 10

// Client calls the backend. Authenticated calls go through the session;
// login, upload and the leaderboard use the plain HTTP client.
type Client struct {
	baseURL *url.URL
	session ports.SessionAccessor
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for unauthenticated calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithRateLimit throttles outbound calls to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) { cl.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, session ports.SessionAccessor, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		session: session,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  logger.With("component", "rest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// call describes one REST exchange.
type call struct {
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     io.Reader
	contentType string
	out         any
	anonymous   bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewTransportError(cl.method, cl.path, err)
	}

	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)
	logger := logging.LoggerFromContext(ctx, c.logger)

	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	var resp *http.Response
	if cl.anonymous {
		resp, err = c.http.Do(req)
		if err != nil {
			err = apperrors.NewTransportError(cl.method, cl.path, err)
		}
	} else {
		resp, err = c.session.Do(ctx, req)
	}
	if err != nil {
		metrics.RESTRequestDuration.WithLabelValues(cl.method, "error").Observe(time.Since(start).Seconds())
		if !apperrors.IsSessionExpired(err) {
			logger.Debug("request failed", "method", cl.method, "path", cl.path, "error", err)
		}
		return err
	}
	defer resp.Body.Close()

	metrics.RESTRequestDuration.WithLabelValues(cl.method, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= http.StatusBadRequest {
		reqErr := apperrors.NewRequestError(cl.method, cl.path, resp.StatusCode, readDetail(resp.Body))
		logger.Debug("request rejected", "method", cl.method, "path", cl.path, "status", resp.StatusCode)
		return reqErr
	}

	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return apperrors.NewTransportError(cl.method, cl.path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	u := c.baseURL.JoinPath(cl.path)
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	body := cl.rawBody
	contentType := cl.contentType
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", cl.method, cl.path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// readDetail extracts the backend's {"detail": ...} message, falling back
// to the raw body text.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if json.Unmarshal(payload.Detail, &text) == nil {
			return text
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(data))
}

func pathID(id string) string {
	return url.PathEscape(id)
}

// asInvalidCredentials turns a login rejection into ErrInvalidCredentials;
// an unauthenticated 401 is not a session expiry.
func asInvalidCredentials(err error) error {
	var reqErr *apperrors.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnauthorized {
		reqErr.Err = apperrors.ErrInvalidCredentials
	}
	return err
}
