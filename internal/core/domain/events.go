package domain

import (
	"fmt"
	"net/url"
)

// EventType tags a live frame.
type EventType string

const (
	EventChat         EventType = "chat"
	EventNotification EventType = "notification"
)

// Envelope is a decoded live frame. Exactly one of Comment or Notification
// is set, matching Type.
type Envelope struct {
	Type         EventType
	Comment      *Comment
	Notification *Notification
}

// ScopeKind names the resource a live channel is bound to.
type ScopeKind string

const (
	ScopeTicket ScopeKind = "ticket"
	ScopeUser   ScopeKind = "user"
)

// Scope identifies the resource a live channel is bound to for its
// lifetime.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// TicketScope returns the scope of a ticket's comment stream.
func TicketScope(ticketID string) Scope {
	return Scope{Kind: ScopeTicket, ID: ticketID}
}

// UserScope returns the scope of a user's notification stream.
func UserScope(userID string) Scope {
	return Scope{Kind: ScopeUser, ID: userID}
}

// Path is the endpoint path of the scope's push stream.
func (s Scope) Path() string {
	return fmt.Sprintf("/ws/%s/%s", s.Kind, url.PathEscape(s.ID))
}

// IsValid reports whether the scope names a known kind and a non-empty id.
func (s Scope) IsValid() bool {
	return (s.Kind == ScopeTicket || s.Kind == ScopeUser) && s.ID != ""
}

func (s Scope) String() string {
	return string(s.Kind) + ":" + s.ID
}
