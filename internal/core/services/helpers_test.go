package services_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/mocks"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
)

// recorder captures observer callbacks.
type recorder struct {
	mu            sync.Mutex
	states        []domain.ThreadState
	comments      [][]domain.Comment
	drafts        []string
	notices       []domain.Notice
	notifications [][]domain.Notification
	unread        []int
}

func (r *recorder) ThreadStateChanged(state domain.ThreadState, _ *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) CommentsChanged(comments []domain.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, comments)
}

func (r *recorder) DraftRestored(draft string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts = append(r.drafts, draft)
}

func (r *recorder) Notice(notice domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *recorder) NotificationsChanged(list []domain.Notification, unread int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, list)
	r.unread = append(r.unread, unread)
}

func (r *recorder) Notices() []domain.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notice(nil), r.notices...)
}

func (r *recorder) States() []domain.ThreadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ThreadState(nil), r.states...)
}

// barrier returns once every envelope pushed before it has been applied.
// Consumers handle one envelope at a time and skip unknown types.
func barrier(ch *mocks.FakeLiveChannel) {
	ch.Push(domain.Envelope{Type: "barrier"})
}

func comment(id string) domain.Comment {
	return domain.Comment{ID: id, Content: "content " + id, AuthorName: "alice", AuthorRole: "user"}
}

func commentAt(id string, t time.Time) domain.Comment {
	c := comment(id)
	c.CreatedAt = domain.NewTimestamp(t)
	return c
}

func ids[T interface{ Key() string }](list []T) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, item.Key())
	}
	return out
}

// fakeSession satisfies ports.SessionAccessor with a fixed credential.
type fakeSession struct {
	cred domain.Credential
}

func (s *fakeSession) Do(context.Context, *http.Request) (*http.Response, error) {
	return nil, apperrors.ErrNotAuthenticated
}

func (s *fakeSession) Credential() (domain.Credential, bool) {
	return s.cred, !s.cred.IsZero()
}

func discard() *slog.Logger {
	return logging.Discard()
}

// logBuffer collects log output written from several goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogger(b *logBuffer) *slog.Logger {
	return logging.NewLogger(logging.Config{Level: "debug", Format: "json", Output: b})
}
