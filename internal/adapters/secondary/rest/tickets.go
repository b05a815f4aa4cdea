package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/lorrc/devexchange/internal/core/domain"
)

// ListTickets returns tickets matching filter, newest first.
func (c *Client) ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	query := url.Values{}
	if filter.OwnerID != "" {
		query.Set("owner_id", filter.OwnerID)
	}
	if filter.Query != "" {
		query.Set("q", filter.Query)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Priority != "" {
		query.Set("priority", string(filter.Priority))
	}

	var tickets []domain.Ticket
	err := c.do(ctx, call{method: http.MethodGet, path: "/tickets", query: query, out: &tickets})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := c.do(ctx, call{method: http.MethodGet, path: "/tickets/" + pathID(ticketID), out: &ticket})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) CreateTicket(ctx context.Context, params domain.CreateTicketParams) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := c.do(ctx, call{method: http.MethodPost, path: "/tickets", body: params, out: &ticket})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicketStatus sets the ticket status. Setting the current status
// again is accepted by the backend.
func (c *Client) UpdateTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	body := map[string]domain.TicketStatus{"status": status}

	var ticket domain.Ticket
	err := c.do(ctx, call{method: http.MethodPatch, path: "/tickets/" + pathID(ticketID), body: body, out: &ticket})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListComments returns the ticket's comments oldest first.
func (c *Client) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := c.do(ctx, call{method: http.MethodGet, path: "/tickets/" + pathID(ticketID) + "/comments", out: &comments})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment posts a comment and returns the stored, authoritative copy.
func (c *Client) CreateComment(ctx context.Context, ticketID string, params domain.CreateCommentParams) (*domain.Comment, error) {
	var comment domain.Comment
	err := c.do(ctx, call{method: http.MethodPost, path: "/tickets/" + pathID(ticketID) + "/comments", body: params, out: &comment})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
