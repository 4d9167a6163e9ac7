// Package service contains the business logic layer.
package service

import (
	"context"

	"chirper/internal/models"
	"chirper/internal/observability"
	"chirper/internal/repository"
	"chirper/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AuthService provides signup and credential checking.
type AuthService struct {
	userRepo repository.UserRepository
}

// SignupInput carries the fields for registering a new account.
type SignupInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

// NewAuthService returns a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Signup validates the input, hashes the password and creates the account.
// Duplicate usernames or emails surface as a validation error.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	// Pre-check the email so the common duplicate case skips the bcrypt work.
	// The unique constraint still backstops concurrent signups.
	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError(models.MsgDuplicateUser)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	imageURL := in.ImageURL
	if imageURL == "" {
		imageURL = models.DefaultImageURL
	}

	user := &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       string(hashed),
		ImageURL:       imageURL,
		HeaderImageURL: models.DefaultHeaderImageURL,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate looks up the user by username and checks the password.
// It returns (nil, nil) when the username is unknown or the password does
// not match, so callers can treat both the same way without leaking which
// part was wrong.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, nil
	}
	observability.LoginAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func (s *AuthService) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}
