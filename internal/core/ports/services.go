package ports

import (
	"context"
	"net/http"

	"github.com/lorrc/devexchange/internal/core/domain"
)

// CredentialStore persists the session credential between runs.
type CredentialStore interface {
	Load() (domain.Credential, error)
	Save(cred domain.Credential) error
	Clear() error
}

// Navigator moves the user to another surface.
type Navigator interface {
	Navigate(path string)
}

// SessionAccessor performs authenticated requests. A backend authorization
// rejection clears the credential, navigates to the login surface with the
// expired flag and returns errors.ErrSessionExpired.
type SessionAccessor interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
	Credential() (domain.Credential, bool)
}

// SessionLifecycle creates and destroys the session credential.
type SessionLifecycle interface {
	Begin(cred domain.Credential) error
	End() error
}

// AuthAPI is the unauthenticated login endpoint.
type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
}

// TicketAPI covers ticket reads and writes.
type TicketAPI interface {
	ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, params domain.CreateTicketParams) (*domain.Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error)
}

// CommentAPI covers a ticket's comment collection.
type CommentAPI interface {
	ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error)
	CreateComment(ctx context.Context, ticketID string, params domain.CreateCommentParams) (*domain.Comment, error)
}

// NotificationAPI covers the current user's notification feed.
type NotificationAPI interface {
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

// UserAPI covers identity, profile and admin user management.
type UserAPI interface {
	Me(ctx context.Context) (*domain.User, error)
	UpdateMe(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	BulkDeleteUsers(ctx context.Context, ids []string) error
	Leaderboard(ctx context.Context) ([]domain.User, error)
}

// UploadAPI stores a file and returns its public URL.
type UploadAPI interface {
	Upload(ctx context.Context, attachment domain.Attachment) (string, error)
}

// LiveChannel is an open push connection. Events yields decoded envelopes
// in delivery order and is closed when the connection ends. A channel
// cannot be restarted.
type LiveChannel interface {
	Events() <-chan domain.Envelope
	Close() error
}

// LiveChannelOpener opens live channels bound to a scope.
type LiveChannelOpener interface {
	Open(ctx context.Context, scope domain.Scope) (LiveChannel, error)
}

// ThreadObserver receives thread view updates. Calls are serialized.
type ThreadObserver interface {
	ThreadStateChanged(state domain.ThreadState, ticket *domain.Ticket)
	// CommentsChanged carries the full ordered list; the newest entry is
	// last and should be revealed.
	CommentsChanged(comments []domain.Comment)
	DraftRestored(draft string)
	Notice(notice domain.Notice)
}

// FeedObserver receives notification center updates. Calls are serialized.
type FeedObserver interface {
	NotificationsChanged(notifications []domain.Notification, unread int)
}
