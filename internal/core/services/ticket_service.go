package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/ports"
)

// TicketService backs the ticket list pages and the new ticket form.
type TicketService struct {
	tickets ports.TicketAPI
	users   ports.UserAPI
}

func NewTicketService(tickets ports.TicketAPI, users ports.UserAPI) *TicketService {
	return &TicketService{tickets: tickets, users: users}
}

func (s *TicketService) ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("filter status %q: %w", filter.Status, apperrors.ErrBadRequest)
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		return nil, domain.ErrInvalidPriority
	}
	return s.tickets.ListTickets(ctx, filter)
}

// MyTickets lists the tickets owned by the current user.
func (s *TicketService) MyTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	me, err := s.users.Me(ctx)
	if err != nil {
		return nil, err
	}
	filter.OwnerID = me.ID
	return s.ListTickets(ctx, filter)
}

// CreateTicket validates and submits a new ticket. Tags are normalized to
// a comma separated list.
func (s *TicketService) CreateTicket(ctx context.Context, params domain.CreateTicketParams) (*domain.Ticket, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	params.Tags = normalizeTags(params.Tags)

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.tickets.CreateTicket(ctx, params)
}

func normalizeTags(raw string) string {
	t := domain.Ticket{Tags: raw}
	return strings.Join(t.TagList(), ",")
}
