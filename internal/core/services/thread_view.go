package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/merge"
	"github.com/lorrc/devexchange/internal/core/ports"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
	"github.com/lorrc/devexchange/internal/infrastructure/metrics"
)

const (
	msgPostFailed     = "Failed to post comment"
	msgLoadFailed     = "Failed to load ticket"
	msgResolved       = "Ticket Solved!"
	msgResolveFailed  = "Failed to resolve ticket"
	mergeSourceLive   = "live"
	mergeSourceLocal  = "local"
	mergeSourceLoaded = "loaded"
)

// ThreadViewDeps are the collaborators a thread view talks to.
type ThreadViewDeps struct {
	Tickets  ports.TicketAPI
	Comments ports.CommentAPI
	Users    ports.UserAPI
	Uploads  ports.UploadAPI
	Live     ports.LiveChannelOpener
}

// ThreadViewOption configures a ThreadView.
type ThreadViewOption func(*ThreadView)

// WithCreatedAtOrder re-sorts the comment list by creation time after
// every merge instead of keeping arrival order.
func WithCreatedAtOrder() ThreadViewOption {
	return func(v *ThreadView) { v.sortByCreated = true }
}

// ThreadView is the ticket detail page: the ticket, its comment thread,
// the composer draft and the live channel feeding the thread.
//
// All state is guarded by mu and observer callbacks run while it is held,
// so observers see updates in the order they were applied. Observers must
// not call back into the view.
type ThreadView struct {
	ticketID      string
	deps          ThreadViewDeps
	observer      ports.ThreadObserver
	logger        *slog.Logger
	sortByCreated bool

	mu       sync.Mutex
	state    domain.ThreadState
	ticket   *domain.Ticket
	me       *domain.User
	comments []domain.Comment
	draft    string
	channel  ports.LiveChannel
	opened   bool
	closed   bool

	wg sync.WaitGroup
}

// NewThreadView creates a view for ticketID. Nothing is fetched until Open.
func NewThreadView(ticketID string, deps ThreadViewDeps, observer ports.ThreadObserver, logger *slog.Logger, opts ...ThreadViewOption) *ThreadView {
	v := &ThreadView{
		ticketID: ticketID,
		deps:     deps,
		observer: observer,
		logger:   logger.With("component", "thread_view", "ticket_id", ticketID),
		state:    domain.ThreadLoading,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open loads the ticket, its comments and the current user concurrently,
// then subscribes to the ticket's live channel. A missing ticket moves the
// view to ThreadNotFound and is not an error. A session expiry aborts the
// load and is returned unlogged. A live channel failure leaves the view
// working without live updates.
func (v *ThreadView) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.opened {
		v.mu.Unlock()
		return apperrors.ErrAlreadyMounted
	}
	v.opened = true
	v.observer.ThreadStateChanged(domain.ThreadLoading, nil)
	v.mu.Unlock()

	var (
		ticket   *domain.Ticket
		comments []domain.Comment
		me       *domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ticket, err = v.deps.Tickets.GetTicket(gctx, v.ticketID)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = v.deps.Comments.ListComments(gctx, v.ticketID)
		return err
	})
	g.Go(func() error {
		var err error
		me, err = v.deps.Users.Me(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return v.loadFailed(err)
	}
	if ticket == nil {
		return v.loadFailed(apperrors.ErrResourceNotFound)
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.ticket = ticket
	v.me = me
	v.comments = v.order(merge.MergeAllByID(nil, comments))
	metrics.MergeResults.WithLabelValues("comments", mergeSourceLoaded, "added").Add(float64(len(v.comments)))
	v.state = stateFor(ticket)
	v.observer.ThreadStateChanged(v.state, cloneTicket(v.ticket))
	v.observer.CommentsChanged(v.comments)
	v.mu.Unlock()

	v.subscribe(ctx)
	return nil
}

func (v *ThreadView) loadFailed(err error) error {
	switch {
	case apperrors.IsSessionExpired(err):
		return err
	case apperrors.IsNotFound(err):
		v.mu.Lock()
		defer v.mu.Unlock()
		if !v.closed {
			v.state = domain.ThreadNotFound
			v.observer.ThreadStateChanged(v.state, nil)
		}
		return nil
	default:
		v.logger.Warn("failed to load thread", "error", err)
		v.mu.Lock()
		defer v.mu.Unlock()
		if !v.closed {
			v.observer.Notice(domain.NewNotice(domain.NoticeError, msgLoadFailed))
		}
		return fmt.Errorf("load ticket %s: %w", v.ticketID, err)
	}
}

func (v *ThreadView) subscribe(ctx context.Context) {
	scope := domain.TicketScope(v.ticketID)
	ctx = logging.WithScope(ctx, scope.String())
	logger := logging.LoggerFromContext(ctx, v.logger)

	ch, err := v.deps.Live.Open(ctx, scope)
	if err != nil {
		logger.Warn("live updates unavailable", "error", err)
		return
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		_ = ch.Close()
		return
	}
	v.channel = ch
	v.wg.Add(1)
	v.mu.Unlock()

	go v.consume(ch, logger)
}

// consume applies live comments one at a time in delivery order.
func (v *ThreadView) consume(ch ports.LiveChannel, logger *slog.Logger) {
	defer v.wg.Done()
	for env := range ch.Events() {
		if env.Type != domain.EventChat || env.Comment == nil {
			continue
		}
		v.apply(*env.Comment, mergeSourceLive)
	}
	logger.Debug("live channel ended")
}

func (v *ThreadView) apply(c domain.Comment, source string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || !v.state.IsReady() {
		return
	}

	merged, added := merge.MergeByID(v.comments, c)
	if !added {
		metrics.MergeResults.WithLabelValues("comments", source, "duplicate").Inc()
		return
	}
	metrics.MergeResults.WithLabelValues("comments", source, "added").Inc()
	v.comments = v.order(merged)
	v.observer.CommentsChanged(v.comments)
}

func (v *ThreadView) order(list []domain.Comment) []domain.Comment {
	if v.sortByCreated {
		return merge.SortByCreatedAt(list)
	}
	return list
}

// Close releases the live channel. Responses that arrive afterwards are
// discarded. Close is idempotent.
func (v *ThreadView) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	ch := v.channel
	v.channel = nil
	v.mu.Unlock()

	if ch != nil {
		return ch.Close()
	}
	return nil
}

// Wait blocks until the live consumer has exited.
func (v *ThreadView) Wait() {
	v.wg.Wait()
}

func (v *ThreadView) State() domain.ThreadState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *ThreadView) Ticket() *domain.Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneTicket(v.ticket)
}

// Comments returns the displayed thread. The slice must not be modified.
func (v *ThreadView) Comments() []domain.Comment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.comments
}

func (v *ThreadView) SetDraft(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = text
}

func (v *ThreadView) Draft() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// PostComment submits the draft with an optional attachment. The draft is
// cleared up front and restored if the upload or the post fails. The
// stored comment is merged at once; its live echo is then a duplicate.
func (v *ThreadView) PostComment(ctx context.Context, attachment *domain.Attachment) error {
	v.mu.Lock()
	if err := v.composerReady(); err != nil {
		v.mu.Unlock()
		return err
	}
	content := v.draft
	if strings.TrimSpace(content) == "" && attachment == nil {
		v.mu.Unlock()
		return apperrors.ErrEmptyComment
	}
	v.draft = ""
	v.mu.Unlock()

	params := domain.CreateCommentParams{Content: content}
	if attachment != nil {
		url, err := v.deps.Uploads.Upload(ctx, *attachment)
		if err != nil {
			return v.postFailed(content, fmt.Errorf("upload attachment: %w", err))
		}
		params.AttachmentURL = &url
	}

	comment, err := v.deps.Comments.CreateComment(ctx, v.ticketID, params)
	if err != nil {
		return v.postFailed(content, fmt.Errorf("post comment: %w", err))
	}

	v.apply(*comment, mergeSourceLocal)
	return nil
}

func (v *ThreadView) composerReady() error {
	switch {
	case v.closed:
		return apperrors.ErrNotReady
	case v.state == domain.ThreadReadySolved:
		return fmt.Errorf("%w: ticket is solved", apperrors.ErrNotReady)
	case v.state != domain.ThreadReadyOpen:
		return apperrors.ErrNotReady
	}
	return nil
}

func (v *ThreadView) postFailed(content string, err error) error {
	if apperrors.IsSessionExpired(err) {
		return err
	}
	v.logger.Warn("failed to post comment", "error", err)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return err
	}
	// Text typed while the request was in flight wins.
	if v.draft == "" {
		v.draft = content
		v.observer.DraftRestored(content)
	}
	v.observer.Notice(domain.NewNotice(domain.NoticeError, msgPostFailed))
	return err
}

// CanResolve reports whether the current user may resolve the ticket:
// the ticket is open and the user is its owner or an administrator.
func (v *ThreadView) CanResolve() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state == domain.ThreadReadyOpen && v.ticket.CanBeManagedBy(v.me)
}

// Resolve moves the ticket to solved. Resolving a solved ticket is a no-op.
func (v *ThreadView) Resolve(ctx context.Context) error {
	v.mu.Lock()
	switch {
	case v.closed || !v.state.IsReady():
		v.mu.Unlock()
		return apperrors.ErrNotReady
	case v.state == domain.ThreadReadySolved:
		v.mu.Unlock()
		return nil
	case !v.ticket.CanBeManagedBy(v.me):
		v.mu.Unlock()
		return apperrors.ErrForbidden
	}
	v.mu.Unlock()

	if _, err := v.deps.Tickets.UpdateTicketStatus(ctx, v.ticketID, domain.StatusSolved); err != nil {
		if apperrors.IsSessionExpired(err) {
			return err
		}
		v.logger.Warn("failed to resolve ticket", "error", err)
		v.mu.Lock()
		if !v.closed {
			v.observer.Notice(domain.NewNotice(domain.NoticeError, resolveFailureMessage(err)))
		}
		v.mu.Unlock()
		return fmt.Errorf("resolve ticket %s: %w", v.ticketID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	ticket := cloneTicket(v.ticket)
	if err := ticket.Resolve(); err != nil {
		return err
	}
	v.ticket = ticket
	v.state = domain.ThreadReadySolved
	v.observer.ThreadStateChanged(v.state, cloneTicket(ticket))
	v.observer.Notice(domain.NewNotice(domain.NoticeSuccess, msgResolved))
	return nil
}

func resolveFailureMessage(err error) string {
	var reqErr *apperrors.RequestError
	if errors.As(err, &reqErr) && reqErr.Detail != "" {
		return reqErr.Detail
	}
	return msgResolveFailed
}

func stateFor(t *domain.Ticket) domain.ThreadState {
	if t.IsSolved() {
		return domain.ThreadReadySolved
	}
	return domain.ThreadReadyOpen
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
