package service

import (
	"context"
	"fmt"

	"github.com/msomdec/conduit/internal/domain"
)

// ProfileService exposes public profiles and the follow graph.
type ProfileService struct {
	users         domain.UserRepository
	relationships domain.RelationshipRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(users domain.UserRepository, relationships domain.RelationshipRepository) *ProfileService {
	return &ProfileService{users: users, relationships: relationships}
}

// Get returns the profile of username as seen by viewer, who may be nil.
func (s *ProfileService) Get(ctx context.Context, username string, viewer *domain.User) (*domain.Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	following := false
	if viewer != nil {
		following, err = s.relationships.IsFollowing(ctx, viewer.ID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check follow: %w", err)
		}
	}

	profile := user.Profile(following)
	return &profile, nil
}

// Follow makes viewer follow username. Following twice is not an error.
func (s *ProfileService) Follow(ctx context.Context, viewer *domain.User, username string) (*domain.Profile, error) {
	if viewer == nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.ID == viewer.ID {
		return nil, domain.NewValidationError("username", "cannot follow yourself")
	}

	if err := s.relationships.Follow(ctx, viewer.ID, user.ID); err != nil {
		return nil, fmt.Errorf("follow: %w", err)
	}

	profile := user.Profile(true)
	return &profile, nil
}

// Unfollow removes the follow edge if there is one.
func (s *ProfileService) Unfollow(ctx context.Context, viewer *domain.User, username string) (*domain.Profile, error) {
	if viewer == nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.relationships.Unfollow(ctx, viewer.ID, user.ID); err != nil {
		return nil, fmt.Errorf("unfollow: %w", err)
	}

	profile := user.Profile(false)
	return &profile, nil
}
