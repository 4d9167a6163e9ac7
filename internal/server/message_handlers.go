package server

import (
	"chirper/internal/models"
	"chirper/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET /. Authenticated viewers get their home timeline;
// anonymous visitors get the most recent messages site-wide.
func (s *Server) Home(c *fiber.Ctx) error {
	p := parsePagination(c, 100)

	if viewerID, ok := s.optionalUserID(c); ok {
		messages, err := s.messageService.Timeline(c.Context(), viewerID, p.Limit)
		if err != nil {
			return s.respondServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"messages": messages,
		})
	}

	messages, err := s.messageService.RecentMessages(c.Context(), p.Limit)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"messages": messages,
	})
}

// CreateMessage handles POST /messages/new
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	message, err := s.messageService.CreateMessage(c.Context(), service.CreateMessageInput{
		UserID: s.currentUserID(c),
		Text:   req.Text,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
	})
}

// GetMessage handles GET /messages/:id
func (s *Server) GetMessage(c *fiber.Ctx) error {
	messageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	message, err := s.messageService.GetMessage(c.Context(), messageID, s.currentUserID(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": message,
	})
}

// DeleteMessage handles POST /messages/:id/delete
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	messageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.messageService.DeleteMessage(c.Context(), s.currentUserID(c), messageID); err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Message deleted",
	})
}

// ToggleLike handles POST /messages/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	messageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, err := s.messageService.ToggleLike(c.Context(), s.currentUserID(c), messageID)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"liked": liked,
	})
}
