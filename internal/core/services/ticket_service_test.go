package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/mocks"
	"github.com/lorrc/devexchange/internal/core/services"
)

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		tickets := mocks.NewMockTicketAPI()
		svc := services.NewTicketService(tickets, mocks.NewMockUserAPI())

		tickets.On("CreateTicket", ctx, domain.CreateTicketParams{
			Title:       "VPN down",
			Description: "Cannot connect since 9am",
			Priority:    domain.PriorityHigh,
			Tags:        "network,vpn",
		}).Return(&domain.Ticket{ID: "T1", Status: domain.StatusOpen}, nil)

		ticket, err := svc.CreateTicket(ctx, domain.CreateTicketParams{
			Title:       "  VPN down ",
			Description: "Cannot connect since 9am",
			Priority:    domain.PriorityHigh,
			Tags:        "network, ,vpn ",
		})
		require.NoError(t, err)
		assert.Equal(t, "T1", ticket.ID)
		tickets.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			params domain.CreateTicketParams
			want   error
		}{
			{"no title", domain.CreateTicketParams{Description: "d", Priority: domain.PriorityLow}, domain.ErrTitleRequired},
			{"no description", domain.CreateTicketParams{Title: "t", Priority: domain.PriorityLow}, domain.ErrDescriptionRequired},
			{"bad priority", domain.CreateTicketParams{Title: "t", Description: "d", Priority: "urgent"}, domain.ErrInvalidPriority},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tickets := mocks.NewMockTicketAPI()
				svc := services.NewTicketService(tickets, mocks.NewMockUserAPI())

				_, err := svc.CreateTicket(ctx, tt.params)
				assert.ErrorIs(t, err, tt.want)
				tickets.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
			})
		}
	})
}

func TestTicketService_MyTickets(t *testing.T) {
	ctx := context.Background()
	tickets := mocks.NewMockTicketAPI()
	users := mocks.NewMockUserAPI()
	svc := services.NewTicketService(tickets, users)

	users.On("Me", ctx).Return(&domain.User{ID: "u1"}, nil)
	tickets.On("ListTickets", ctx, domain.TicketFilter{OwnerID: "u1", Status: domain.StatusOpen}).
		Return([]domain.Ticket{{ID: "T1", OwnerID: "u1"}}, nil)

	list, err := svc.MyTickets(ctx, domain.TicketFilter{OwnerID: "someone-else", Status: domain.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	tickets.AssertExpectations(t)
}

func TestTicketService_ListTicketsRejectsUnknownFilter(t *testing.T) {
	tickets := mocks.NewMockTicketAPI()
	svc := services.NewTicketService(tickets, mocks.NewMockUserAPI())

	_, err := svc.ListTickets(context.Background(), domain.TicketFilter{Status: "closed"})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.ListTickets(context.Background(), domain.TicketFilter{Priority: "urgent"})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
}

func TestAdminService(t *testing.T) {
	ctx := context.Background()

	newSession := func(role domain.Role) *fakeSession {
		return &fakeSession{cred: domain.Credential{AccessToken: "tok", Role: role}}
	}

	t.Run("admin lists and deletes", func(t *testing.T) {
		users := mocks.NewMockUserAPI()
		nav := mocks.NewMockNavigator()
		svc := services.NewAdminService(users, newSession(domain.RoleAdmin), nav, discard())

		users.On("ListUsers", ctx, domain.UserFilter{Role: domain.RoleUser}).Return([]domain.User{{ID: "u2"}}, nil)
		users.On("BulkDeleteUsers", ctx, []string{"u2"}).Return(nil)

		list, err := svc.ListUsers(ctx, domain.UserFilter{Role: domain.RoleUser})
		require.NoError(t, err)
		assert.Len(t, list, 1)
		require.NoError(t, svc.DeleteUsers(ctx, []string{"u2"}))
		require.NoError(t, svc.DeleteUsers(ctx, nil))

		users.AssertNumberOfCalls(t, "BulkDeleteUsers", 1)
		nav.AssertNotCalled(t, "Navigate", mock.Anything)
	})

	t.Run("non admin is sent to dashboard", func(t *testing.T) {
		users := mocks.NewMockUserAPI()
		nav := mocks.NewMockNavigator()
		svc := services.NewAdminService(users, newSession(domain.RoleManager), nav, discard())

		nav.On("Navigate", domain.PathDashboard).Return().Once()

		_, err := svc.ListUsers(ctx, domain.UserFilter{})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		users.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything)
		nav.AssertExpectations(t)
	})

	t.Run("no session", func(t *testing.T) {
		svc := services.NewAdminService(mocks.NewMockUserAPI(), &fakeSession{}, mocks.NewMockNavigator(), discard())
		_, err := svc.ListUsers(ctx, domain.UserFilter{})
		assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	})
}

func TestProfileService(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserAPI()
	svc := services.NewProfileService(users)

	bio := "Network engineer"
	users.On("Me", ctx).Return(&domain.User{ID: "u1"}, nil).Once()
	users.On("UpdateMe", ctx, domain.ProfileUpdate{Bio: &bio}).Return(&domain.User{ID: "u1", Bio: &bio}, nil).Once()

	me, err := svc.UpdateProfile(ctx, domain.ProfileUpdate{})
	require.NoError(t, err)
	assert.Nil(t, me.Bio)

	me, err = svc.UpdateProfile(ctx, domain.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Network engineer", *me.Bio)
	users.AssertExpectations(t)
}
