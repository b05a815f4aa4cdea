package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/merge"
	"github.com/lorrc/devexchange/internal/core/ports"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
	"github.com/lorrc/devexchange/internal/infrastructure/metrics"
)

// NotificationCenterDeps are the collaborators a notification center uses.
type NotificationCenterDeps struct {
	Users         ports.UserAPI
	Notifications ports.NotificationAPI
	Live          ports.LiveChannelOpener
	Navigator     ports.Navigator
}

// NotificationCenter is the notification bell: the user's feed, most
// recent first, kept current by the user's live channel. Observer calls
// happen under the lock, like ThreadView.
type NotificationCenter struct {
	deps     NotificationCenterDeps
	observer ports.FeedObserver
	logger   *slog.Logger

	mu        sync.Mutex
	list      []domain.Notification
	channel   ports.LiveChannel
	mounted   bool
	unmounted bool

	pending  sync.WaitGroup
	consumer sync.WaitGroup
}

func NewNotificationCenter(deps NotificationCenterDeps, observer ports.FeedObserver, logger *slog.Logger) *NotificationCenter {
	return &NotificationCenter{
		deps:     deps,
		observer: observer,
		logger:   logger.With("component", "notification_center"),
	}
}

// Mount learns the current user, loads the existing feed and subscribes to
// the user's live channel for as long as the center stays mounted.
func (c *NotificationCenter) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return apperrors.ErrAlreadyMounted
	}
	c.mounted = true
	c.mu.Unlock()

	me, err := c.deps.Users.Me(ctx)
	if err != nil {
		return mountFailed(c.logger, "identify user", err)
	}
	if me == nil {
		return mountFailed(c.logger, "identify user", apperrors.ErrNotAuthenticated)
	}

	ctx = logging.WithUserID(ctx, me.ID)
	logger := logging.LoggerFromContext(ctx, c.logger)

	existing, err := c.deps.Notifications.ListNotifications(ctx)
	if err != nil {
		return mountFailed(logger, "load notifications", err)
	}

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return nil
	}
	c.logger = logger
	c.list = merge.MergeAllByID(nil, existing)
	c.notify()
	c.mu.Unlock()

	c.subscribe(ctx, domain.UserScope(me.ID), logger)
	return nil
}

func mountFailed(logger *slog.Logger, step string, err error) error {
	if apperrors.IsSessionExpired(err) {
		return err
	}
	logger.Warn("failed to mount notification center", "step", step, "error", err)
	return fmt.Errorf("%s: %w", step, err)
}

func (c *NotificationCenter) subscribe(ctx context.Context, scope domain.Scope, logger *slog.Logger) {
	ctx = logging.WithScope(ctx, scope.String())
	ch, err := c.deps.Live.Open(ctx, scope)
	if err != nil {
		logger.Warn("live notifications unavailable", "scope", scope.String(), "error", err)
		return
	}

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		_ = ch.Close()
		return
	}
	c.channel = ch
	c.consumer.Add(1)
	c.mu.Unlock()

	go c.consume(ch)
}

func (c *NotificationCenter) consume(ch ports.LiveChannel) {
	defer c.consumer.Done()
	for env := range ch.Events() {
		if env.Type != domain.EventNotification || env.Notification == nil {
			continue
		}
		c.receive(*env.Notification)
	}
}

func (c *NotificationCenter) receive(n domain.Notification) {
	n.IsRead = false

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return
	}

	list, added := merge.Prepend(c.list, n)
	if !added {
		metrics.MergeResults.WithLabelValues("notifications", mergeSourceLive, "duplicate").Inc()
		c.logger.Debug("dropping repeated notification", "notification_id", n.ID)
		return
	}
	metrics.MergeResults.WithLabelValues("notifications", mergeSourceLive, "added").Inc()
	c.list = list
	c.notify()
}

// Unmount closes the live channel. It is idempotent.
func (c *NotificationCenter) Unmount() error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return nil
	}
	c.unmounted = true
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	if ch != nil {
		return ch.Close()
	}
	return nil
}

// Wait blocks until pending read requests have finished and, once unmounted,
// until the live consumer has exited.
func (c *NotificationCenter) Wait() {
	c.pending.Wait()

	c.mu.Lock()
	unmounted := c.unmounted
	c.mu.Unlock()
	if unmounted {
		c.consumer.Wait()
	}
}

// Notifications returns the feed, most recent first. The slice must not be
// modified.
func (c *NotificationCenter) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list
}

func (c *NotificationCenter) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return merge.UnreadCount(c.list)
}

// Open navigates to the notification's link and marks it read.
func (c *NotificationCenter) Open(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := slices.IndexFunc(c.list, func(n domain.Notification) bool { return n.ID == id })
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("notification %s: %w", id, apperrors.ErrResourceNotFound)
	}
	link := c.list[idx].Link
	c.mu.Unlock()

	if link != "" {
		c.deps.Navigator.Navigate(link)
	}
	c.MarkRead(ctx, id)
	return nil
}

// MarkRead flags the notification read at once and asks the backend to
// record it in the background. A failed request is logged and the local
// state is kept. Marking a read or unknown notification does nothing.
func (c *NotificationCenter) MarkRead(ctx context.Context, id string) {
	c.mu.Lock()
	list, changed := merge.MarkRead(c.list, id)
	if !changed {
		c.mu.Unlock()
		return
	}
	c.list = list
	c.notify()
	c.pending.Add(1)
	logger := c.logger
	c.mu.Unlock()

	go func() {
		defer c.pending.Done()
		err := c.deps.Notifications.MarkNotificationRead(context.WithoutCancel(ctx), id)
		switch {
		case err == nil:
		case apperrors.IsSessionExpired(err), errors.Is(err, apperrors.ErrNotAuthenticated):
			// Signed out meanwhile; the login surface already took over.
			logger.Debug("notification read not recorded, signed out", "notification_id", id)
		default:
			logger.Warn("failed to mark notification read", "notification_id", id, "error", err)
		}
	}()
}

func (c *NotificationCenter) notify() {
	c.observer.NotificationsChanged(c.list, merge.UnreadCount(c.list))
}
