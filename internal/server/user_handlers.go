package server

import (
	"chirper/internal/models"
	"chirper/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /users. An optional q parameter filters by username
// substring.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	query := c.Query("q")

	users, err := s.userService.ListUsers(c.Context(), query, p.Limit, p.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"users": users,
	})
}

// GetUserProfile handles GET /users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewerID := s.currentUserID(c)
	p := parsePagination(c, 20)

	profile, err := s.userService.GetProfile(c.Context(), userID, viewerID, p.Limit, p.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(profile)
}

// GetFollowing handles GET /users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	users, err := s.followService.Following(c.Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"users": users,
	})
}

// GetFollowers handles GET /users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	users, err := s.followService.Followers(c.Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"users": users,
	})
}

// GetLikedMessages handles GET /users/:id/likes
func (s *Server) GetLikedMessages(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	messages, err := s.messageService.LikedMessages(c.Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
	})
}

// FollowUser handles POST /users/follow/:id
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := s.currentUserID(c)

	if err := s.followService.Follow(c.Context(), userID, targetID); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"following": true,
	})
}

// StopFollowingUser handles POST /users/stop-following/:id
func (s *Server) StopFollowingUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := s.currentUserID(c)

	if err := s.followService.Unfollow(c.Context(), userID, targetID); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"following": false,
	})
}

// UpdateProfile handles POST /users/profile. The current password gates
// the edit.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Username       string `json:"username"`
		Email          string `json:"email"`
		ImageURL       string `json:"image_url"`
		HeaderImageURL string `json:"header_image_url"`
		Bio            string `json:"bio"`
		Location       string `json:"location"`
		Password       string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Current password is required"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:         s.currentUserID(c),
		Username:       req.Username,
		Email:          req.Email,
		ImageURL:       req.ImageURL,
		HeaderImageURL: req.HeaderImageURL,
		Bio:            req.Bio,
		Location:       req.Location,
		Password:       req.Password,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}

// DeleteAccount handles POST /users/delete. The session ends with the
// account.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	userID := s.currentUserID(c)

	if err := s.userService.DeleteAccount(c.Context(), userID); err != nil {
		return s.respondServiceError(c, err)
	}

	if token := c.Cookies(SessionCookieName); token != "" {
		_ = s.sessions.Destroy(c.Context(), token)
	}
	s.clearSessionCookie(c)
	s.revokeBearerToken(c)

	return c.JSON(fiber.Map{
		"message": "Account deleted",
	})
}
