package rest

import (
	"context"
	"net/http"

	"github.com/lorrc/devexchange/internal/core/domain"
)

// ListNotifications returns the current user's feed, most recent first.
func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var notifications []domain.Notification
	if err := c.do(ctx, call{method: http.MethodGet, path: "/notifications", out: &notifications}); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead is idempotent on the backend.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/notifications/" + pathID(notificationID) + "/read"})
}
