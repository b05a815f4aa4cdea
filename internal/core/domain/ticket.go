package domain

import (
	"errors"
	"strings"
)

// Pre-defined errors for domain-specific validation.
var (
	ErrTitleRequired           = errors.New("title is required")
	ErrDescriptionRequired     = errors.New("description is required")
	ErrInvalidPriority         = errors.New("invalid ticket priority")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen   TicketStatus = "open"
	StatusSolved TicketStatus = "solved"
)

// IsValid reports whether the status is one the backend knows.
func (s TicketStatus) IsValid() bool {
	return s == StatusOpen || s == StatusSolved
}

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityCritical TicketPriority = "critical"
	PriorityHigh     TicketPriority = "high"
	PriorityMedium   TicketPriority = "medium"
	PriorityLow      TicketPriority = "low"
)

// IsValid reports whether the priority is one the backend accepts.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Ticket mirrors the backend's ticket read model.
type Ticket struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    TicketPriority `json:"priority"`
	Status      TicketStatus   `json:"status"`
	Tags        string         `json:"tags"`
	CreatedAt   Timestamp      `json:"created_at"`
	OwnerName   string         `json:"owner_name"`
	OwnerID     string         `json:"owner_id"`
	OwnerEmail  *string        `json:"owner_email,omitempty"`
}

// TagList splits the comma separated tag string.
func (t *Ticket) TagList() []string {
	var tags []string
	for _, tag := range strings.Split(t.Tags, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// IsSolved reports whether the ticket reached its terminal state.
func (t *Ticket) IsSolved() bool {
	return t.Status == StatusSolved
}

// Resolve moves the ticket from open to solved. Resolving a solved ticket
// is a no-op; there is no path back to open.
func (t *Ticket) Resolve() error {
	switch t.Status {
	case StatusSolved:
		return nil
	case StatusOpen:
		t.Status = StatusSolved
		return nil
	default:
		return ErrInvalidStatusTransition
	}
}

// CanBeManagedBy reports whether the user may resolve the ticket: its owner
// or an administrator.
func (t *Ticket) CanBeManagedBy(u *User) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || (u.ID != "" && u.ID == t.OwnerID)
}

// CreateTicketParams is the body of POST /tickets.
type CreateTicketParams struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    TicketPriority `json:"priority"`
	Tags        string         `json:"tags"`
}

// TicketFilter narrows GET /tickets. Empty fields are omitted.
type TicketFilter struct {
	OwnerID  string
	Query    string
	Status   TicketStatus
	Priority TicketPriority
}

// Validate checks the fields the backend requires.
func (p CreateTicketParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(p.Description) == "" {
		return ErrDescriptionRequired
	}
	if !p.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}
