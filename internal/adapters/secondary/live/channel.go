// Package live is the Live Channel Client: a websocket push stream bound
// to one ticket or user scope.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/devexchange/internal/config"
	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/ports"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
	"github.com/lorrc/devexchange/internal/infrastructure/metrics"
)

var (
	_ ports.LiveChannelOpener = (*Dialer)(nil)
	_ ports.LiveChannel       = (*Channel)(nil)
)

// Dialer opens live channels against the backend's websocket endpoints.
type Dialer struct {
	baseURL string
	cfg     config.WebSocketConfig
	dialer  *websocket.Dialer
	header  http.Header
	logger  *slog.Logger
}

// NewDialer creates a dialer for ws(s) endpoints under baseURL.
func NewDialer(baseURL string, cfg config.WebSocketConfig, logger *slog.Logger) *Dialer {
	return &Dialer{
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   cfg.ReadBufferSize,
			WriteBufferSize:  cfg.WriteBufferSize,
		},
		header: http.Header{},
		logger: logger.With("component", "live"),
	}
}

// Open connects to the push stream for scope. Failure is reported as
// ErrLiveChannelUnavailable; callers keep working without live updates.
func (d *Dialer) Open(ctx context.Context, scope domain.Scope) (ports.LiveChannel, error) {
	if !scope.IsValid() {
		return nil, fmt.Errorf("%w: invalid scope %q", apperrors.ErrLiveChannelUnavailable, scope.String())
	}

	logger := logging.LoggerFromContext(logging.WithScope(ctx, scope.String()), d.logger)

	endpoint := d.baseURL + scope.Path()
	conn, resp, err := d.dialer.DialContext(ctx, endpoint, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		metrics.LiveChannelFailures.WithLabelValues(string(scope.Kind), "dial").Inc()
		logger.Debug("live channel dial failed", "error", err)
		return nil, fmt.Errorf("%w: dial %s: %v", apperrors.ErrLiveChannelUnavailable, scope, err)
	}

	ch := newChannel(conn, scope, d.cfg, logger)
	go ch.readPump()
	go ch.pingPump()

	logger.Debug("live channel open")
	return ch, nil
}

// Channel is one open push stream. Envelopes are delivered on Events in
// the order frames arrived; Events is closed when the stream ends.
type Channel struct {
	conn   *websocket.Conn
	scope  domain.Scope
	cfg    config.WebSocketConfig
	events chan domain.Envelope
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func newChannel(conn *websocket.Conn, scope domain.Scope, cfg config.WebSocketConfig, logger *slog.Logger) *Channel {
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 1
	}
	metrics.LiveChannelsOpen.WithLabelValues(string(scope.Kind)).Inc()
	return &Channel{
		conn:   conn,
		scope:  scope,
		cfg:    cfg,
		events: make(chan domain.Envelope, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *Channel) Events() <-chan domain.Envelope {
	return c.events
}

// Close releases the connection. It is safe to call more than once and
// from any goroutine.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Channel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readPump decodes frames until the connection ends. It is the only
// sender on events.
func (c *Channel) readPump() {
	kind := string(c.scope.Kind)
	defer func() {
		metrics.LiveChannelsOpen.WithLabelValues(kind).Dec()
		close(c.events)
		_ = c.Close()
	}()

	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	if c.cfg.PongWait > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
			c.logger.Warn("failed to set read deadline", "error", err)
			return
		}
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		})
	}

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.readFailed(err)
			return
		}

		env, ok, err := Decode(message)
		switch {
		case err != nil:
			metrics.LiveFramesIgnored.WithLabelValues(kind, "malformed").Inc()
			c.logger.Debug("dropping malformed frame", "error", err)
			continue
		case !ok:
			metrics.LiveFramesIgnored.WithLabelValues(kind, "unknown_type").Inc()
			continue
		}
		metrics.LiveFramesReceived.WithLabelValues(kind, string(env.Type)).Inc()

		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) readFailed(err error) {
	if c.closed() {
		return
	}
	metrics.LiveChannelFailures.WithLabelValues(string(c.scope.Kind), "read").Inc()

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && !websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Debug("live channel closed by peer", "code", closeErr.Code)
		return
	}
	c.logger.Warn("live channel dropped", "error", err)
}

// pingPump keeps the connection alive. WriteControl may run concurrently
// with the reader and with Close.
func (c *Channel) pingPump() {
	if c.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteWait)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if !c.closed() {
					c.logger.Debug("failed to send ping", "error", err)
				}
				return
			}
		case <-c.done:
			return
		}
	}
}
