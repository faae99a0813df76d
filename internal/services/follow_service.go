package services

import (
	"context"

	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
)

// FollowService subscribes users to authors.
type FollowService struct {
	follows repositories.FollowRepository
	users   repositories.UserRepository
}

func NewFollowService(follows repositories.FollowRepository, users repositories.UserRepository) *FollowService {
	return &FollowService{follows: follows, users: users}
}

// Follow subscribes actor to username. Following again, or following
// oneself, changes nothing.
func (s *FollowService) Follow(ctx context.Context, actor *models.User, username string) error {
	if actor == nil {
		return ErrForbidden
	}
	author, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return mapNotFound(err)
	}
	if author.ID == actor.ID {
		return nil
	}
	created, err := s.follows.GetOrCreateFollow(ctx, actor.ID, author.ID)
	if err != nil {
		return err
	}
	if created {
		metrics.Follows.WithLabelValues("follow").Inc()
	}
	return nil
}

// Unfollow removes any subscription of actor to username.
func (s *FollowService) Unfollow(ctx context.Context, actor *models.User, username string) error {
	if actor == nil {
		return ErrForbidden
	}
	author, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return mapNotFound(err)
	}
	if err := s.follows.DeleteFollow(ctx, actor.ID, author.ID); err != nil {
		return err
	}
	metrics.Follows.WithLabelValues("unfollow").Inc()
	return nil
}
