package service

import (
	"context"

	"chirper/internal/cache"
	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/validation"
)

// MessageService provides message and like business logic.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

// CreateMessageInput carries the fields for posting a message.
type CreateMessageInput struct {
	UserID uint
	Text   string
}

// NewMessageService returns a new MessageService.
func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo, userRepo: userRepo}
}

// CreateMessage validates and stores a new message for the author.
func (s *MessageService) CreateMessage(ctx context.Context, in CreateMessageInput) (*models.Message, error) {
	if err := validation.ValidateMessageText(in.Text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	message := &models.Message{
		UserID: in.UserID,
		Text:   in.Text,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return s.messageRepo.GetByID(ctx, message.ID, in.UserID)
}

// GetMessage returns a single message with its like details for the viewer.
func (s *MessageService) GetMessage(ctx context.Context, id, viewerID uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, id, viewerID)
}

// DeleteMessage removes a message. Only the author may delete it.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID uint) error {
	message, err := s.messageRepo.GetByID(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if message.UserID != userID {
		return models.NewForbiddenError(models.MsgNotMessageOwner)
	}
	return s.messageRepo.Delete(ctx, messageID)
}

// ToggleLike likes the message if the user has not liked it, and unlikes it
// otherwise. Liking your own message is rejected. It returns the message's
// new liked state.
func (s *MessageService) ToggleLike(ctx context.Context, userID, messageID uint) (bool, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID, userID)
	if err != nil {
		return false, err
	}
	if message.UserID == userID {
		return false, models.NewValidationError("You cannot like your own message")
	}

	liked, err := s.messageRepo.IsLiked(ctx, userID, messageID)
	if err != nil {
		return false, err
	}
	if liked {
		if err := s.messageRepo.Unlike(ctx, userID, messageID); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.messageRepo.Like(ctx, userID, messageID); err != nil {
		return false, err
	}
	return true, nil
}

// LikedMessages returns the messages a user has liked, newest like first.
func (s *MessageService) LikedMessages(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.LikedByUser(ctx, userID, limit, offset)
}

// Timeline returns the home feed for a user.
func (s *MessageService) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.messageRepo.Timeline(ctx, userID, limit)
}

// RecentMessages returns the latest messages site-wide. The default-sized
// feed is cached briefly; it is viewer-independent and serves every
// anonymous landing request.
func (s *MessageService) RecentMessages(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if limit != 100 {
		return s.messageRepo.Recent(ctx, limit)
	}

	var messages []models.Message
	err := cache.Aside(ctx, cache.MessagesListKey, &messages, cache.ListTTL, func() error {
		var fetchErr error
		messages, fetchErr = s.messageRepo.Recent(ctx, limit)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
