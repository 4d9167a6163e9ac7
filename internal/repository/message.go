package repository

import (
	"context"
	"errors"

	"chirper/internal/cache"
	"chirper/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines persistence operations for messages and likes.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Message, error)
	GetByUserID(ctx context.Context, userID uint, currentUserID uint, limit, offset int) ([]models.Message, error)
	Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	Recent(ctx context.Context, limit int) ([]models.Message, error)
	Delete(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, messageID uint) error
	Unlike(ctx context.Context, userID, messageID uint) error
	IsLiked(ctx context.Context, userID, messageID uint) (bool, error)
	LikedByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error)
	CountLikedByUser(ctx context.Context, userID uint) (int64, error)
	CountByUserID(ctx context.Context, userID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// withDetails augments a message query with the computed likes_count and
// liked columns. currentUserID of 0 means no viewer, so liked is always false.
func (r *messageRepository) withDetails(ctx context.Context, currentUserID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Select(`messages.*,
			(SELECT COUNT(*) FROM likes WHERE likes.message_id = messages.id) AS likes_count,
			EXISTS(SELECT 1 FROM likes WHERE likes.message_id = messages.id AND likes.user_id = ?) AS liked`,
			currentUserID).
		Preload("User")
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateMessagesList(ctx)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Message, error) {
	var message models.Message
	fetch := func() error {
		return r.withDetails(ctx, currentUserID).
			Where("messages.id = ?", id).
			First(&message).Error
	}

	// The liked column is viewer-specific, so only the anonymous view of a
	// message is cacheable.
	var err error
	if currentUserID == 0 {
		err = cache.Aside(ctx, cache.MessageKey(id), &message, cache.MessageTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &message, nil
}

func (r *messageRepository) GetByUserID(ctx context.Context, userID uint, currentUserID uint, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	if err := r.withDetails(ctx, currentUserID).
		Where("messages.user_id = ?", userID).
		Order("messages.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// Timeline returns the most recent messages authored by the user or by
// anyone they follow, newest first, capped at limit.
func (r *messageRepository) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	followedIDs := r.db.Model(&models.Follow{}).
		Select("followed_id").
		Where("follower_id = ?", userID)

	var messages []models.Message
	if err := r.withDetails(ctx, userID).
		Where("messages.user_id = ? OR messages.user_id IN (?)", userID, followedIDs).
		Order("messages.created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// Recent returns the latest messages site-wide, for the anonymous landing view.
func (r *messageRepository) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var messages []models.Message
	if err := r.withDetails(ctx, 0).
		Order("messages.created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateMessage(ctx, id)
	cache.InvalidateMessagesList(ctx)
	return nil
}

// Like inserts the like edge. The insert is a no-op when the edge already
// exists, so concurrent likes of the same message cannot fail or double up.
func (r *messageRepository) Like(ctx context.Context, userID, messageID uint) error {
	like := models.Like{UserID: userID, MessageID: messageID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateMessage(ctx, messageID)
	return nil
}

func (r *messageRepository) Unlike(ctx context.Context, userID, messageID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateMessage(ctx, messageID)
	return nil
}

func (r *messageRepository) IsLiked(ctx context.Context, userID, messageID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *messageRepository) LikedByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	if err := r.withDetails(ctx, userID).
		Joins("JOIN likes user_likes ON user_likes.message_id = messages.id").
		Where("user_likes.user_id = ?", userID).
		Order("user_likes.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

func (r *messageRepository) CountLikedByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *messageRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
