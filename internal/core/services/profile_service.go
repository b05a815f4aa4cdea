package services

import (
	"context"

	"github.com/lorrc/devexchange/internal/core/domain"
	"github.com/lorrc/devexchange/internal/core/ports"
)

// ProfileService backs the profile and leaderboard pages.
type ProfileService struct {
	users ports.UserAPI
}

func NewProfileService(users ports.UserAPI) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Me(ctx context.Context) (*domain.User, error) {
	return s.users.Me(ctx)
}

// UpdateProfile sends only the fields that were set. An empty update
// returns the current profile unchanged.
func (s *ProfileService) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	if update.IsEmpty() {
		return s.users.Me(ctx)
	}
	return s.users.UpdateMe(ctx, update)
}

func (s *ProfileService) Leaderboard(ctx context.Context) ([]domain.User, error) {
	return s.users.Leaderboard(ctx)
}
