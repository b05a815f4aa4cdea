package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/mocks"
	"github.com/lorrc/devexchange/internal/core/services"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
)

type threadFixture struct {
	view     *services.ThreadView
	tickets  *mocks.MockTicketAPI
	comments *mocks.MockCommentAPI
	users    *mocks.MockUserAPI
	uploads  *mocks.MockUploadAPI
	live     *mocks.MockLiveChannelOpener
	channel  *mocks.FakeLiveChannel
	observer *recorder
}

func newThreadFixture(t *testing.T, opts ...services.ThreadViewOption) *threadFixture {
	t.Helper()
	f := &threadFixture{
		tickets:  mocks.NewMockTicketAPI(),
		comments: mocks.NewMockCommentAPI(),
		users:    mocks.NewMockUserAPI(),
		uploads:  mocks.NewMockUploadAPI(),
		live:     mocks.NewMockLiveChannelOpener(),
		channel:  mocks.NewFakeLiveChannel(),
		observer: &recorder{},
	}
	f.view = services.NewThreadView("T1", services.ThreadViewDeps{
		Tickets:  f.tickets,
		Comments: f.comments,
		Users:    f.users,
		Uploads:  f.uploads,
		Live:     f.live,
	}, f.observer, logging.Discard(), opts...)

	t.Cleanup(func() {
		_ = f.view.Close()
		f.view.Wait()
	})
	return f
}

func openTicket(status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{ID: "T1", Title: "VPN down", Status: status, Priority: domain.PriorityHigh, OwnerID: "u1", OwnerName: "alice"}
}

// ready opens the view as the ticket owner with the given comments.
func (f *threadFixture) ready(t *testing.T, existing ...domain.Comment) {
	t.Helper()
	f.readyAs(t, &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser}, existing...)
}

func (f *threadFixture) readyAs(t *testing.T, me *domain.User, existing ...domain.Comment) {
	t.Helper()
	f.tickets.On("GetTicket", mock.Anything, "T1").Return(openTicket(domain.StatusOpen), nil)
	f.comments.On("ListComments", mock.Anything, "T1").Return(existing, nil)
	f.users.On("Me", mock.Anything).Return(me, nil)
	f.live.On("Open", mock.Anything, domain.TicketScope("T1")).Return(f.channel, nil)

	require.NoError(t, f.view.Open(context.Background()))
	require.Equal(t, domain.ThreadReadyOpen, f.view.State())
}

func TestThreadView_Open(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t, comment("c1"), comment("c2"), comment("c1"))

	assert.Equal(t, []string{"c1", "c2"}, ids(f.view.Comments()))
	assert.Equal(t, "VPN down", f.view.Ticket().Title)
	assert.Equal(t, []domain.ThreadState{domain.ThreadLoading, domain.ThreadReadyOpen}, f.observer.States())
	f.live.AssertExpectations(t)

	assert.ErrorIs(t, f.view.Open(context.Background()), apperrors.ErrAlreadyMounted)
}

func TestThreadView_LiveCommentIsIdempotent(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)
	assert.Empty(t, f.view.Comments())

	c1 := domain.Comment{ID: "c1", Content: "hi"}
	require.True(t, f.channel.PushComment(c1))
	barrier(f.channel)
	assert.Equal(t, []string{"c1"}, ids(f.view.Comments()))

	require.True(t, f.channel.PushComment(c1))
	barrier(f.channel)
	assert.Equal(t, []string{"c1"}, ids(f.view.Comments()))
}

func TestThreadView_OptimisticEchoThenLive(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t, comment("c1"))

	c2 := comment("c2")
	f.comments.On("CreateComment", mock.Anything, "T1", domain.CreateCommentParams{Content: "thanks"}).Return(&c2, nil)

	f.view.SetDraft("thanks")
	require.NoError(t, f.view.PostComment(context.Background(), nil))
	assert.Equal(t, []string{"c1", "c2"}, ids(f.view.Comments()))
	assert.Empty(t, f.view.Draft())

	require.True(t, f.channel.PushComment(c2))
	barrier(f.channel)
	assert.Equal(t, []string{"c1", "c2"}, ids(f.view.Comments()))
}

func TestThreadView_LiveThenOptimisticEcho(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	c2 := comment("c2")
	f.comments.On("CreateComment", mock.Anything, "T1", mock.Anything).Return(&c2, nil)

	require.True(t, f.channel.PushComment(c2))
	barrier(f.channel)

	f.view.SetDraft("thanks")
	require.NoError(t, f.view.PostComment(context.Background(), nil))
	assert.Equal(t, []string{"c2"}, ids(f.view.Comments()))
}

func TestThreadView_ArrivalOrder(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	now := time.Now()
	c2 := commentAt("c2", now.Add(-time.Hour))
	f.comments.On("CreateComment", mock.Anything, "T1", mock.Anything).Return(&c2, nil)

	require.True(t, f.channel.PushComment(commentAt("c1", now)))
	barrier(f.channel)

	f.view.SetDraft("mine")
	require.NoError(t, f.view.PostComment(context.Background(), nil))

	require.True(t, f.channel.PushComment(commentAt("c3", now.Add(-2*time.Hour))))
	barrier(f.channel)

	assert.Equal(t, []string{"c1", "c2", "c3"}, ids(f.view.Comments()))
}

func TestThreadView_CreatedAtOrder(t *testing.T) {
	f := newThreadFixture(t, services.WithCreatedAtOrder())
	now := time.Now()
	f.ready(t, commentAt("c2", now), commentAt("c1", now.Add(-time.Minute)))

	assert.Equal(t, []string{"c1", "c2"}, ids(f.view.Comments()))

	require.True(t, f.channel.PushComment(commentAt("c0", now.Add(-time.Hour))))
	barrier(f.channel)
	assert.Equal(t, []string{"c0", "c1", "c2"}, ids(f.view.Comments()))
}

func TestThreadView_PostFailureRestoresDraft(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	f.comments.On("CreateComment", mock.Anything, "T1", mock.Anything).
		Return(nil, apperrors.NewRequestError("POST", "/tickets/T1/comments", 500, ""))

	f.view.SetDraft("please help")
	err := f.view.PostComment(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrTransientNetwork)

	assert.Equal(t, "please help", f.view.Draft())
	assert.Empty(t, f.view.Comments())
	notices := f.observer.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeError, notices[0].Level)
	assert.Equal(t, "Failed to post comment", notices[0].Message)
	assert.Equal(t, domain.DefaultNoticeTTL, notices[0].TTL)
}

func TestThreadView_UploadFailureRestoresDraft(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	attachment := domain.Attachment{Filename: "log.txt", Content: strings.NewReader("trace")}
	f.uploads.On("Upload", mock.Anything, attachment).Return("", errors.New("connection reset"))

	f.view.SetDraft("see attached")
	err := f.view.PostComment(context.Background(), &attachment)
	require.Error(t, err)

	assert.Equal(t, "see attached", f.view.Draft())
	f.comments.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestThreadView_PostWithAttachment(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	attachment := domain.Attachment{Filename: "shot.png", Content: strings.NewReader("png")}
	url := "http://127.0.0.1:8000/static/abc.png"
	f.uploads.On("Upload", mock.Anything, attachment).Return(url, nil)

	stored := comment("c5")
	stored.AttachmentURL = &url
	f.comments.On("CreateComment", mock.Anything, "T1", domain.CreateCommentParams{Content: "", AttachmentURL: &url}).Return(&stored, nil)

	require.NoError(t, f.view.PostComment(context.Background(), &attachment))
	require.Len(t, f.view.Comments(), 1)
	assert.True(t, f.view.Comments()[0].HasAttachment())
}

func TestThreadView_EmptyComment(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	f.view.SetDraft("   ")
	assert.ErrorIs(t, f.view.PostComment(context.Background(), nil), apperrors.ErrEmptyComment)
	assert.Equal(t, "   ", f.view.Draft())
	f.comments.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything)
}

func TestThreadView_NotFound(t *testing.T) {
	f := newThreadFixture(t)
	f.tickets.On("GetTicket", mock.Anything, "T1").Return(nil, apperrors.NewRequestError("GET", "/tickets/T1", 404, ""))
	f.comments.On("ListComments", mock.Anything, "T1").Return([]domain.Comment{}, nil).Maybe()
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1"}, nil).Maybe()

	require.NoError(t, f.view.Open(context.Background()))
	assert.Equal(t, domain.ThreadNotFound, f.view.State())
	f.live.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	assert.ErrorIs(t, f.view.PostComment(context.Background(), nil), apperrors.ErrNotReady)
}

func TestThreadView_SessionExpiredAbortsSilently(t *testing.T) {
	f := newThreadFixture(t)
	f.tickets.On("GetTicket", mock.Anything, "T1").Return(openTicket(domain.StatusOpen), nil).Maybe()
	f.comments.On("ListComments", mock.Anything, "T1").Return([]domain.Comment{}, nil).Maybe()
	f.users.On("Me", mock.Anything).Return(nil, apperrors.NewRequestError("GET", "/users/me", 401, ""))

	err := f.view.Open(context.Background())
	assert.True(t, apperrors.IsSessionExpired(err))
	assert.Equal(t, domain.ThreadLoading, f.view.State())
	assert.Empty(t, f.observer.Notices())
	f.live.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestThreadView_TransientLoadFailure(t *testing.T) {
	f := newThreadFixture(t)
	f.tickets.On("GetTicket", mock.Anything, "T1").Return(nil, apperrors.NewTransportError("GET", "/tickets/T1", errors.New("refused")))
	f.comments.On("ListComments", mock.Anything, "T1").Return([]domain.Comment{}, nil).Maybe()
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1"}, nil).Maybe()

	err := f.view.Open(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrTransientNetwork)
	assert.Equal(t, domain.ThreadLoading, f.view.State())
	require.Len(t, f.observer.Notices(), 1)
}

func TestThreadView_LiveUnavailableIsNotFatal(t *testing.T) {
	f := newThreadFixture(t)
	f.tickets.On("GetTicket", mock.Anything, "T1").Return(openTicket(domain.StatusOpen), nil)
	f.comments.On("ListComments", mock.Anything, "T1").Return([]domain.Comment{comment("c1")}, nil)
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1"}, nil)
	f.live.On("Open", mock.Anything, domain.TicketScope("T1")).Return(nil, apperrors.ErrLiveChannelUnavailable)

	require.NoError(t, f.view.Open(context.Background()))
	assert.Equal(t, domain.ThreadReadyOpen, f.view.State())

	c2 := comment("c2")
	f.comments.On("CreateComment", mock.Anything, "T1", mock.Anything).Return(&c2, nil)
	f.view.SetDraft("still works")
	require.NoError(t, f.view.PostComment(context.Background(), nil))
	assert.Equal(t, []string{"c1", "c2"}, ids(f.view.Comments()))
}

func TestThreadView_Resolve(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)
	require.True(t, f.view.CanResolve())

	f.tickets.On("UpdateTicketStatus", mock.Anything, "T1", domain.StatusSolved).
		Return(openTicket(domain.StatusSolved), nil).Once()

	require.NoError(t, f.view.Resolve(context.Background()))
	assert.Equal(t, domain.ThreadReadySolved, f.view.State())
	assert.True(t, f.view.Ticket().IsSolved())
	assert.False(t, f.view.CanResolve())

	notices := f.observer.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeSuccess, notices[0].Level)

	// Terminal: resolving again does not call the backend and the composer
	// is gone.
	require.NoError(t, f.view.Resolve(context.Background()))
	f.view.SetDraft("reopen?")
	assert.ErrorIs(t, f.view.PostComment(context.Background(), nil), apperrors.ErrNotReady)
	f.tickets.AssertNumberOfCalls(t, "UpdateTicketStatus", 1)
}

func TestThreadView_ResolveCapability(t *testing.T) {
	t.Run("other user", func(t *testing.T) {
		f := newThreadFixture(t)
		f.readyAs(t, &domain.User{ID: "u2", Role: domain.RoleManager})

		assert.False(t, f.view.CanResolve())
		assert.ErrorIs(t, f.view.Resolve(context.Background()), apperrors.ErrForbidden)
		f.tickets.AssertNotCalled(t, "UpdateTicketStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin", func(t *testing.T) {
		f := newThreadFixture(t)
		f.readyAs(t, &domain.User{ID: "u9", Role: domain.RoleAdmin})
		assert.True(t, f.view.CanResolve())
	})
}

func TestThreadView_ResolveRejectedShowsDetail(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	f.tickets.On("UpdateTicketStatus", mock.Anything, "T1", domain.StatusSolved).
		Return(nil, apperrors.NewRequestError("PATCH", "/tickets/T1", 403, "You are not authorized to manage this ticket."))

	err := f.view.Resolve(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, domain.ThreadReadyOpen, f.view.State())

	notices := f.observer.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "You are not authorized to manage this ticket.", notices[0].Message)
}

func TestThreadView_CloseReleasesChannel(t *testing.T) {
	f := newThreadFixture(t)
	f.ready(t)

	require.NoError(t, f.view.Close())
	f.view.Wait()
	assert.True(t, f.channel.Closed())
	assert.False(t, f.channel.PushComment(comment("late")))
	assert.Empty(t, f.view.Comments())
	assert.NoError(t, f.view.Close())
}

func TestThreadView_CloseDuringSubscribe(t *testing.T) {
	f := newThreadFixture(t)
	entered := make(chan struct{})
	gate := make(chan struct{})
	f.tickets.On("GetTicket", mock.Anything, "T1").Return(openTicket(domain.StatusOpen), nil)
	f.comments.On("ListComments", mock.Anything, "T1").Return([]domain.Comment{comment("c1")}, nil)
	f.users.On("Me", mock.Anything).Return(&domain.User{ID: "u1"}, nil)
	f.live.On("Open", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(logging.ScopeKey) == "ticket:T1"
	}), domain.TicketScope("T1")).
		Run(func(mock.Arguments) {
			close(entered)
			<-gate
		}).
		Return(f.channel, nil)

	done := make(chan error, 1)
	go func() { done <- f.view.Open(context.Background()) }()

	<-entered
	require.NoError(t, f.view.Close())
	close(gate)
	require.NoError(t, <-done)
	f.view.Wait()

	assert.True(t, f.channel.Closed(), "a channel opened after close is released")
	assert.False(t, f.channel.PushComment(comment("c2")))
	assert.Equal(t, []string{"c1"}, ids(f.view.Comments()))
}
