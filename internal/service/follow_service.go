package service

import (
	"context"

	"chirper/internal/models"
	"chirper/internal/repository"
)

// FollowService provides follow-graph business logic.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow makes userID follow targetID. Following yourself is rejected and
// following someone twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, userID, targetID uint) error {
	if userID == targetID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	return s.followRepo.Create(ctx, userID, targetID)
}

// Unfollow removes the follow edge. Unfollowing someone you do not follow
// is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, userID, targetID uint) error {
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	return s.followRepo.Delete(ctx, userID, targetID)
}

// IsFollowing reports whether userID follows targetID.
func (s *FollowService) IsFollowing(ctx context.Context, userID, targetID uint) (bool, error) {
	return s.followRepo.Exists(ctx, userID, targetID)
}

// Following lists the users that userID follows.
func (s *FollowService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, userID, limit, offset)
}

// Followers lists the users that follow userID.
func (s *FollowService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, userID, limit, offset)
}
