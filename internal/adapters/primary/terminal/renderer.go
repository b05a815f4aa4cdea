// Package terminal renders views and navigation for the command line
// client.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/lorrc/devexchange/internal/core/domain"
	"github.com/lorrc/devexchange/internal/core/ports"
)

var (
	_ ports.ThreadObserver = (*Renderer)(nil)
	_ ports.FeedObserver   = (*Renderer)(nil)
)

var (
	titleColor   = color.New(color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgCyan)
	unreadColor  = color.New(color.FgYellow, color.Bold)
	authorColor  = color.New(color.FgBlue, color.Bold)
)

var priorityColors = map[domain.TicketPriority]*color.Color{
	domain.PriorityCritical: color.New(color.FgRed, color.Bold),
	domain.PriorityHigh:     color.New(color.FgHiRed),
	domain.PriorityMedium:   color.New(color.FgYellow),
	domain.PriorityLow:      color.New(color.FgBlue),
}

// Renderer streams view updates to a terminal. A comment or notification
// is printed once, when it first appears.
type Renderer struct {
	out io.Writer
	now func() time.Time

	mu            sync.Mutex
	printed       map[string]bool
	notifications map[string]bool
	notice        *domain.Notice
	noticeUntil   time.Time
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:           out,
		now:           time.Now,
		printed:       make(map[string]bool),
		notifications: make(map[string]bool),
	}
}

func (r *Renderer) ThreadStateChanged(state domain.ThreadState, ticket *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch state {
	case domain.ThreadLoading:
		mutedColor.Fprintln(r.out, "Loading ticket...")
	case domain.ThreadNotFound:
		errorColor.Fprintln(r.out, "Ticket not found.")
	case domain.ThreadReadyOpen, domain.ThreadReadySolved:
		if ticket != nil {
			r.writeTicketHeader(ticket)
		}
		if state == domain.ThreadReadySolved {
			mutedColor.Fprintln(r.out, "This ticket is closed. No further comments can be posted.")
		}
	}
}

func (r *Renderer) writeTicketHeader(t *domain.Ticket) {
	titleColor.Fprintf(r.out, "%s ", t.Title)
	priority(t.Priority).Fprintf(r.out, "[%s]", t.Priority)
	fmt.Fprintf(r.out, " %s\n", statusLabel(t.Status))
	mutedColor.Fprintf(r.out, "#%s opened by %s %s\n", t.ID, t.OwnerName, when(t.CreatedAt))
	if tags := t.TagList(); len(tags) > 0 {
		mutedColor.Fprintf(r.out, "tags: %s\n", strings.Join(tags, ", "))
	}
	if t.Description != "" {
		fmt.Fprintf(r.out, "\n%s\n", t.Description)
	}
	fmt.Fprintln(r.out)
}

// CommentsChanged prints entries not shown yet. The newest entry is last,
// which keeps it in view at the bottom of the terminal.
func (r *Renderer) CommentsChanged(comments []domain.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range comments {
		if r.printed[c.ID] {
			continue
		}
		r.printed[c.ID] = true
		r.writeComment(c)
	}
}

func (r *Renderer) writeComment(c domain.Comment) {
	authorColor.Fprint(r.out, c.AuthorName)
	if c.AuthorRole != "" && c.AuthorRole != string(domain.RoleUser) {
		mutedColor.Fprintf(r.out, " (%s)", c.AuthorRole)
	}
	mutedColor.Fprintf(r.out, " %s\n", when(c.CreatedAt))
	if c.Content != "" {
		fmt.Fprintf(r.out, "  %s\n", c.Content)
	}
	if c.HasAttachment() {
		infoColor.Fprintf(r.out, "  attachment: %s\n", *c.AttachmentURL)
	}
}

func (r *Renderer) DraftRestored(draft string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mutedColor.Fprintf(r.out, "Draft restored: %s\n", draft)
}

// Notice prints the notice and keeps it active for its TTL.
func (r *Renderer) Notice(n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notice = &n
	r.noticeUntil = r.now().Add(n.TTL)

	switch n.Level {
	case domain.NoticeSuccess:
		successColor.Fprintf(r.out, "✓ %s\n", n.Message)
	case domain.NoticeError:
		errorColor.Fprintf(r.out, "✗ %s\n", n.Message)
	default:
		infoColor.Fprintf(r.out, "• %s\n", n.Message)
	}
}

// ActiveNotice returns the last notice until its TTL has passed.
func (r *Renderer) ActiveNotice() (domain.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notice == nil || !r.now().Before(r.noticeUntil) {
		return domain.Notice{}, false
	}
	return *r.notice, true
}

// NotificationsChanged prints the unread badge and any new entries.
func (r *Renderer) NotificationsChanged(list []domain.Notification, unread int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fresh []domain.Notification
	for _, n := range list {
		if !r.notifications[n.ID] {
			r.notifications[n.ID] = true
			fresh = append(fresh, n)
		}
	}
	if len(fresh) == 0 {
		return
	}

	if unread > 0 {
		unreadColor.Fprintf(r.out, "Notifications (%d new)\n", unread)
	} else {
		titleColor.Fprintln(r.out, "Notifications")
	}
	for _, n := range fresh {
		writeNotification(r.out, n)
	}
}

// Tickets prints a ticket list.
func Tickets(out io.Writer, tickets []domain.Ticket) {
	if len(tickets) == 0 {
		mutedColor.Fprintln(out, "No tickets found.")
		return
	}
	for _, t := range tickets {
		priority(t.Priority).Fprintf(out, "%-9s", t.Priority)
		fmt.Fprintf(out, " %-8s %s ", statusLabel(t.Status), t.Title)
		mutedColor.Fprintf(out, "#%s by %s %s\n", t.ID, t.OwnerName, when(t.CreatedAt))
	}
}

// Users prints an admin user list.
func Users(out io.Writer, users []domain.User) {
	if len(users) == 0 {
		mutedColor.Fprintln(out, "No users found.")
		return
	}
	for _, u := range users {
		fmt.Fprintf(out, "%-24s %-8s %5d ", u.DisplayName(), u.Role, u.Reputation)
		mutedColor.Fprintf(out, "%s\n", u.ID)
	}
}

// Leaderboard prints users ranked by reputation.
func Leaderboard(out io.Writer, users []domain.User) {
	for i, u := range users {
		rank := fmt.Sprintf("%2d.", i+1)
		if i < 3 {
			successColor.Fprint(out, rank)
		} else {
			fmt.Fprint(out, rank)
		}
		fmt.Fprintf(out, " %-24s %5d\n", u.DisplayName(), u.Reputation)
	}
}

// Profile prints the current user.
func Profile(out io.Writer, u *domain.User) {
	titleColor.Fprintln(out, u.DisplayName())
	fmt.Fprintf(out, "username:   %s\n", u.Username)
	fmt.Fprintf(out, "role:       %s\n", u.Role)
	fmt.Fprintf(out, "reputation: %d\n", u.Reputation)
	if u.Email != nil {
		fmt.Fprintf(out, "email:      %s\n", *u.Email)
	}
	if u.Bio != nil && *u.Bio != "" {
		fmt.Fprintf(out, "\n%s\n", *u.Bio)
	}
}

// Notifications prints a feed with its unread count.
func Notifications(out io.Writer, list []domain.Notification, unread int) {
	if len(list) == 0 {
		mutedColor.Fprintln(out, "No notifications.")
		return
	}
	unreadColor.Fprintf(out, "%d unread\n", unread)
	for _, n := range list {
		writeNotification(out, n)
	}
}

func writeNotification(out io.Writer, n domain.Notification) {
	if n.IsRead {
		mutedColor.Fprintf(out, "  %s ", n.Content)
	} else {
		unreadColor.Fprint(out, "● ")
		fmt.Fprintf(out, "%s ", n.Content)
	}
	mutedColor.Fprintf(out, "[%s] %s\n", n.ID, n.Link)
}

func priority(p domain.TicketPriority) *color.Color {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return mutedColor
}

func statusLabel(s domain.TicketStatus) string {
	if s == domain.StatusSolved {
		return successColor.Sprint("solved")
	}
	return infoColor.Sprint("open")
}

func when(ts domain.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04")
}
