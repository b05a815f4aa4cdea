package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/mocks"
	"github.com/lorrc/devexchange/internal/core/services"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
)

type centerFixture struct {
	center        *services.NotificationCenter
	users         *mocks.MockUserAPI
	notifications *mocks.MockNotificationAPI
	live          *mocks.MockLiveChannelOpener
	nav           *mocks.MockNavigator
	channel       *mocks.FakeLiveChannel
	observer      *recorder
	logs          *logBuffer
}

func newCenterFixture(t *testing.T) *centerFixture {
	t.Helper()
	f := &centerFixture{
		users:         mocks.NewMockUserAPI(),
		notifications: mocks.NewMockNotificationAPI(),
		live:          mocks.NewMockLiveChannelOpener(),
		nav:           mocks.NewMockNavigator(),
		channel:       mocks.NewFakeLiveChannel(),
		observer:      &recorder{},
		logs:          &logBuffer{},
	}
	f.center = services.NewNotificationCenter(services.NotificationCenterDeps{
		Users:         f.users,
		Notifications: f.notifications,
		Live:          f.live,
		Navigator:     f.nav,
	}, f.observer, captureLogger(f.logs))

	t.Cleanup(func() {
		_ = f.center.Unmount()
		f.center.Wait()
	})
	return f
}

func (f *centerFixture) mount(t *testing.T, existing ...domain.Notification) {
	t.Helper()
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1", Username: "alice"}, nil)
	f.notifications.On("ListNotifications", mock.Anything).Return(existing, nil)
	f.live.On("Open", mock.Anything, domain.UserScope("u1")).Return(f.channel, nil)

	require.NoError(t, f.center.Mount(context.Background()))
}

func notification(id string, read bool) domain.Notification {
	return domain.Notification{ID: id, Content: "note " + id, Link: "/dashboard/tickets/" + id, IsRead: read}
}

func TestNotificationCenter_Mount(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t, notification("n2", false), notification("n1", true))

	assert.Equal(t, []string{"n2", "n1"}, ids(f.center.Notifications()))
	assert.Equal(t, 1, f.center.UnreadCount())
	f.live.AssertExpectations(t)

	assert.ErrorIs(t, f.center.Mount(context.Background()), apperrors.ErrAlreadyMounted)
}

func TestNotificationCenter_LiveIsMostRecentFirst(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t)

	require.True(t, f.channel.PushNotification(notification("n1", false)))
	require.True(t, f.channel.PushNotification(notification("n2", true)))
	barrier(f.channel)

	list := f.center.Notifications()
	assert.Equal(t, []string{"n2", "n1"}, ids(list))
	assert.False(t, list[0].IsRead, "pushed notifications arrive unread")
	assert.Equal(t, 2, f.center.UnreadCount())

	f.notifications.On("MarkNotificationRead", mock.Anything, "n2").Return(nil).Once()
	f.center.MarkRead(context.Background(), "n2")
	f.center.Wait()

	list = f.center.Notifications()
	assert.Equal(t, []string{"n2", "n1"}, ids(list))
	assert.True(t, list[0].IsRead)
	assert.False(t, list[1].IsRead)
	assert.Equal(t, 1, f.center.UnreadCount())
}

func TestNotificationCenter_RepeatedPushDropped(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t, notification("n1", true))

	require.True(t, f.channel.PushNotification(notification("n1", false)))
	barrier(f.channel)

	list := f.center.Notifications()
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
}

func TestNotificationCenter_MarkReadIsMonotonic(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t, notification("n2", true), notification("n1", false))

	before := f.center.Notifications()
	f.center.MarkRead(context.Background(), "n2")
	f.center.MarkRead(context.Background(), "missing")
	f.center.Wait()

	assert.Equal(t, before, f.center.Notifications())
	f.notifications.AssertNotCalled(t, "MarkNotificationRead", mock.Anything, mock.Anything)
}

func TestNotificationCenter_OpenNavigatesAndMarksRead(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t, notification("n1", false))

	var wg sync.WaitGroup
	wg.Add(1)
	release := make(chan struct{})
	f.nav.On("Navigate", "/dashboard/tickets/n1").Return().Once()
	f.notifications.On("MarkNotificationRead", mock.Anything, "n1").
		Run(func(mock.Arguments) {
			defer wg.Done()
			<-release
		}).
		Return(nil).Once()

	require.NoError(t, f.center.Open(context.Background(), "n1"))

	// Local state flips before the request completes.
	assert.Equal(t, 0, f.center.UnreadCount())
	close(release)
	wg.Wait()
	f.center.Wait()

	f.nav.AssertExpectations(t)
	f.notifications.AssertExpectations(t)
}

func TestNotificationCenter_MarkReadFailureKeepsLocalState(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t, notification("n1", false))

	f.notifications.On("MarkNotificationRead", mock.Anything, "n1").Return(errors.New("boom"))

	f.center.MarkRead(context.Background(), "n1")
	f.center.Wait()
	assert.Equal(t, 0, f.center.UnreadCount())

	logs := f.logs.String()
	assert.Contains(t, logs, `"msg":"failed to mark notification read"`)
	assert.Contains(t, logs, `"user_id":"u1"`)
}

func TestNotificationCenter_MarkReadAfterSignOutIsQuiet(t *testing.T) {
	for name, err := range map[string]error{
		"not authenticated": apperrors.ErrNotAuthenticated,
		"session expired":   apperrors.NewRequestError("POST", "/notifications/n1/read", 401, ""),
	} {
		t.Run(name, func(t *testing.T) {
			f := newCenterFixture(t)
			f.mount(t, notification("n1", false))
			f.notifications.On("MarkNotificationRead", mock.Anything, "n1").Return(err)

			f.center.MarkRead(context.Background(), "n1")
			f.center.Wait()

			assert.Equal(t, 0, f.center.UnreadCount())
			assert.NotContains(t, f.logs.String(), `"level":"WARN"`)
			assert.Contains(t, f.logs.String(), "notification read not recorded")
		})
	}
}

func TestNotificationCenter_OpenUnknown(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t)

	err := f.center.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	f.nav.AssertNotCalled(t, "Navigate", mock.Anything)
}

func TestNotificationCenter_MountSessionExpired(t *testing.T) {
	f := newCenterFixture(t)
	f.users.On("Me", mock.Anything).Return(nil, apperrors.NewRequestError("GET", "/users/me", 401, ""))

	err := f.center.Mount(context.Background())
	assert.True(t, apperrors.IsSessionExpired(err))
	f.notifications.AssertNotCalled(t, "ListNotifications", mock.Anything)
	f.live.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestNotificationCenter_LiveUnavailable(t *testing.T) {
	f := newCenterFixture(t)
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1"}, nil)
	f.notifications.On("ListNotifications", mock.Anything).Return([]domain.Notification{notification("n1", false)}, nil)
	f.live.On("Open", mock.Anything, domain.UserScope("u1")).Return(nil, apperrors.ErrLiveChannelUnavailable)

	require.NoError(t, f.center.Mount(context.Background()))
	assert.Equal(t, 1, f.center.UnreadCount())

	logs := f.logs.String()
	assert.Contains(t, logs, `"msg":"live notifications unavailable"`)
	assert.Contains(t, logs, `"user_id":"u1"`)
	assert.Contains(t, logs, `"scope":"user:u1"`)
}

func TestNotificationCenter_SubscribeContextCarriesScope(t *testing.T) {
	f := newCenterFixture(t)
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1"}, nil)
	f.notifications.On("ListNotifications", mock.Anything).Return([]domain.Notification{}, nil)
	f.live.On("Open", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(logging.ScopeKey) == "user:u1" && ctx.Value(logging.UserIDKey) == "u1"
	}), domain.UserScope("u1")).Return(f.channel, nil)

	require.NoError(t, f.center.Mount(context.Background()))
	f.live.AssertExpectations(t)
}

func TestNotificationCenter_UnmountDuringSubscribe(t *testing.T) {
	f := newCenterFixture(t)
	entered := make(chan struct{})
	gate := make(chan struct{})
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1"}, nil)
	f.notifications.On("ListNotifications", mock.Anything).Return([]domain.Notification{}, nil)
	f.live.On("Open", mock.Anything, domain.UserScope("u1")).
		Run(func(mock.Arguments) {
			close(entered)
			<-gate
		}).
		Return(f.channel, nil)

	done := make(chan error, 1)
	go func() { done <- f.center.Mount(context.Background()) }()

	<-entered
	require.NoError(t, f.center.Unmount())
	close(gate)
	require.NoError(t, <-done)
	f.center.Wait()

	assert.True(t, f.channel.Closed(), "a channel opened after unmount is released")
	assert.False(t, f.channel.PushNotification(notification("late", false)))
	assert.Empty(t, f.center.Notifications())
}

func TestNotificationCenter_UnmountClosesChannel(t *testing.T) {
	f := newCenterFixture(t)
	f.mount(t)

	require.NoError(t, f.center.Unmount())
	f.center.Wait()
	assert.True(t, f.channel.Closed())
	assert.False(t, f.channel.PushNotification(notification("late", false)))
	assert.Empty(t, f.center.Notifications())
}
