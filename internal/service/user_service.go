package service

import (
	"context"

	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/validation"
)

// UserService provides profile and account business logic.
type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	messageRepo repository.MessageRepository
	auth        *AuthService
}

// Profile bundles a user with their graph and message counts.
type Profile struct {
	User           *models.User     `json:"user"`
	Messages       []models.Message `json:"messages"`
	MessageCount   int64            `json:"message_count"`
	FollowingCount int64            `json:"following_count"`
	FollowerCount  int64            `json:"follower_count"`
	LikeCount      int64            `json:"like_count"`
	IsFollowing    bool             `json:"is_following"`
}

// UpdateProfileInput carries the editable profile fields. Password is the
// current password and gates the whole update.
type UpdateProfileInput struct {
	UserID         uint
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
	Password       string
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository, messageRepo repository.MessageRepository, auth *AuthService) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		auth:        auth,
	}
}

// ListUsers returns a page of users, optionally filtered by a username
// substring search.
func (s *UserService) ListUsers(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	if query != "" {
		return s.userRepo.Search(ctx, query, limit, offset)
	}
	return s.userRepo.List(ctx, limit, offset)
}

// GetUserByID returns the user with the given ID.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile assembles the profile view for a user, including their recent
// messages and counts. viewerID of 0 means an anonymous viewer.
func (s *UserService) GetProfile(ctx context.Context, userID, viewerID uint, limit, offset int) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.GetByUserID(ctx, userID, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	messageCount, err := s.messageRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	followingCount, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	followerCount, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}

	likeCount, err := s.messageRepo.CountLikedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	isFollowing := false
	if viewerID != 0 && viewerID != userID {
		isFollowing, err = s.followRepo.Exists(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
	}

	return &Profile{
		User:           user,
		Messages:       messages,
		MessageCount:   messageCount,
		FollowingCount: followingCount,
		FollowerCount:  followerCount,
		LikeCount:      likeCount,
		IsFollowing:    isFollowing,
	}, nil
}

// UpdateProfile applies the edits after verifying the current password.
// A wrong password rejects the whole update with the generic unauthorized
// message.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if !s.auth.CheckPassword(user, in.Password) {
		return nil, models.NewUnauthorizedError(models.MsgAccessUnauthorized)
	}

	if in.Username != "" && in.Username != user.Username {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = in.Username
	}
	if in.Email != "" && in.Email != user.Email {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = in.Email
	}
	if in.ImageURL != "" {
		user.ImageURL = in.ImageURL
	}
	if in.HeaderImageURL != "" {
		user.HeaderImageURL = in.HeaderImageURL
	}
	if in.Bio != "" {
		user.Bio = in.Bio
	}
	if in.Location != "" {
		user.Location = in.Location
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user together with their messages, follow edges
// and likes.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, userID)
}
