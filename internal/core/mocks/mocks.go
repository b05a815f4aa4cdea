package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/devexchange/internal/core/domain"
	"github.com/lorrc/devexchange/internal/core/ports"
)

// MockTicketAPI is a mock implementation of ports.TicketAPI
type MockTicketAPI struct {
	mock.Mock
}

func NewMockTicketAPI() *MockTicketAPI {
	return &MockTicketAPI{}
}

func (m *MockTicketAPI) ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketAPI) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketAPI) CreateTicket(ctx context.Context, params domain.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketAPI) UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// MockCommentAPI is a mock implementation of ports.CommentAPI
type MockCommentAPI struct {
	mock.Mock
}

func NewMockCommentAPI() *MockCommentAPI {
	return &MockCommentAPI{}
}

func (m *MockCommentAPI) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

func (m *MockCommentAPI) CreateComment(ctx context.Context, ticketID string, params domain.CreateCommentParams) (*domain.Comment, error) {
	args := m.Called(ctx, ticketID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

// MockUserAPI is a mock implementation of ports.UserAPI
type MockUserAPI struct {
	mock.Mock
}

func NewMockUserAPI() *MockUserAPI {
	return &MockUserAPI{}
}

func (m *MockUserAPI) Me(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserAPI) UpdateMe(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	args := m.Called(ctx, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserAPI) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserAPI) BulkDeleteUsers(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockUserAPI) Leaderboard(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// MockNotificationAPI is a mock implementation of ports.NotificationAPI
type MockNotificationAPI struct {
	mock.Mock
}

func NewMockNotificationAPI() *MockNotificationAPI {
	return &MockNotificationAPI{}
}

func (m *MockNotificationAPI) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *MockNotificationAPI) MarkNotificationRead(ctx context.Context, notificationID string) error {
	args := m.Called(ctx, notificationID)
	return args.Error(0)
}

// MockUploadAPI is a mock implementation of ports.UploadAPI
type MockUploadAPI struct {
	mock.Mock
}

func NewMockUploadAPI() *MockUploadAPI {
	return &MockUploadAPI{}
}

func (m *MockUploadAPI) Upload(ctx context.Context, attachment domain.Attachment) (string, error) {
	args := m.Called(ctx, attachment)
	return args.String(0), args.Error(1)
}

// MockAuthAPI is a mock implementation of ports.AuthAPI
type MockAuthAPI struct {
	mock.Mock
}

func NewMockAuthAPI() *MockAuthAPI {
	return &MockAuthAPI{}
}

func (m *MockAuthAPI) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginResponse), args.Error(1)
}

// MockSessionLifecycle is a mock implementation of ports.SessionLifecycle
type MockSessionLifecycle struct {
	mock.Mock
}

func NewMockSessionLifecycle() *MockSessionLifecycle {
	return &MockSessionLifecycle{}
}

func (m *MockSessionLifecycle) Begin(cred domain.Credential) error {
	args := m.Called(cred)
	return args.Error(0)
}

func (m *MockSessionLifecycle) End() error {
	args := m.Called()
	return args.Error(0)
}

// MockNavigator is a mock implementation of ports.Navigator
type MockNavigator struct {
	mock.Mock
}

func NewMockNavigator() *MockNavigator {
	return &MockNavigator{}
}

func (m *MockNavigator) Navigate(path string) {
	m.Called(path)
}

// MockLiveChannelOpener is a mock implementation of ports.LiveChannelOpener
type MockLiveChannelOpener struct {
	mock.Mock
}

func NewMockLiveChannelOpener() *MockLiveChannelOpener {
	return &MockLiveChannelOpener{}
}

func (m *MockLiveChannelOpener) Open(ctx context.Context, scope domain.Scope) (ports.LiveChannel, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.LiveChannel), args.Error(1)
}

// FakeLiveChannel is an in-memory live channel driven by the test.
type FakeLiveChannel struct {
	events    chan domain.Envelope
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func NewFakeLiveChannel() *FakeLiveChannel {
	return &FakeLiveChannel{events: make(chan domain.Envelope)}
}

// Push delivers env and blocks until the consumer has received it. It
// reports false if the channel was closed first.
func (c *FakeLiveChannel) Push(env domain.Envelope) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	c.events <- env
	return true
}

// PushComment delivers a chat envelope.
func (c *FakeLiveChannel) PushComment(comment domain.Comment) bool {
	return c.Push(domain.Envelope{Type: domain.EventChat, Comment: &comment})
}

// PushNotification delivers a notification envelope.
func (c *FakeLiveChannel) PushNotification(n domain.Notification) bool {
	return c.Push(domain.Envelope{Type: domain.EventNotification, Notification: &n})
}

func (c *FakeLiveChannel) Events() <-chan domain.Envelope {
	return c.events
}

func (c *FakeLiveChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.events)
	})
	return nil
}

// Closed reports whether Close was called.
func (c *FakeLiveChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var (
	_ ports.TicketAPI         = (*MockTicketAPI)(nil)
	_ ports.CommentAPI        = (*MockCommentAPI)(nil)
	_ ports.UserAPI           = (*MockUserAPI)(nil)
	_ ports.NotificationAPI   = (*MockNotificationAPI)(nil)
	_ ports.UploadAPI         = (*MockUploadAPI)(nil)
	_ ports.AuthAPI           = (*MockAuthAPI)(nil)
	_ ports.SessionLifecycle  = (*MockSessionLifecycle)(nil)
	_ ports.Navigator         = (*MockNavigator)(nil)
	_ ports.LiveChannelOpener = (*MockLiveChannelOpener)(nil)
	_ ports.LiveChannel       = (*FakeLiveChannel)(nil)
)
