package repository

import (
	"context"
	"testing"
	"time"

	"chirper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	viewer := createTestUser(t, db, "viewer")

	t.Run("Create and GetByID", func(t *testing.T) {
		message := &models.Message{UserID: author.ID, Text: "first"}
		err := repo.Create(ctx, message)
		assert.NoError(t, err)
		assert.NotZero(t, message.ID)

		fetched, err := repo.GetByID(ctx, message.ID, viewer.ID)
		assert.NoError(t, err)
		assert.Equal(t, "first", fetched.Text)
		assert.Equal(t, author.ID, fetched.UserID)
		assert.Equal(t, "author", fetched.User.Username)
		assert.Zero(t, fetched.LikesCount)
		assert.False(t, fetched.Liked)
	})

	t.Run("Unknown ID is NOT_FOUND", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999, 0)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("Like sets computed columns", func(t *testing.T) {
		message := &models.Message{UserID: author.ID, Text: "likeable"}
		require.NoError(t, repo.Create(ctx, message))

		require.NoError(t, repo.Like(ctx, viewer.ID, message.ID))

		fetched, err := repo.GetByID(ctx, message.ID, viewer.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, fetched.LikesCount)
		assert.True(t, fetched.Liked)

		// A different viewer sees the count but not the flag.
		asAuthor, err := repo.GetByID(ctx, message.ID, author.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, asAuthor.LikesCount)
		assert.False(t, asAuthor.Liked)
	})

	t.Run("Like is idempotent", func(t *testing.T) {
		message := &models.Message{UserID: author.ID, Text: "double tap"}
		require.NoError(t, repo.Create(ctx, message))

		require.NoError(t, repo.Like(ctx, viewer.ID, message.ID))
		require.NoError(t, repo.Like(ctx, viewer.ID, message.ID))

		fetched, err := repo.GetByID(ctx, message.ID, viewer.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, fetched.LikesCount)
	})

	t.Run("Unlike removes the edge", func(t *testing.T) {
		message := &models.Message{UserID: author.ID, Text: "fickle"}
		require.NoError(t, repo.Create(ctx, message))
		require.NoError(t, repo.Like(ctx, viewer.ID, message.ID))
		require.NoError(t, repo.Unlike(ctx, viewer.ID, message.ID))

		liked, err := repo.IsLiked(ctx, viewer.ID, message.ID)
		assert.NoError(t, err)
		assert.False(t, liked)
	})

	t.Run("LikedByUser lists newest like first", func(t *testing.T) {
		first := &models.Message{UserID: author.ID, Text: "liked first"}
		second := &models.Message{UserID: author.ID, Text: "liked second"}
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		liker := createTestUser(t, db, "liker")
		require.NoError(t, repo.Like(ctx, liker.ID, first.ID))
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, repo.Like(ctx, liker.ID, second.ID))

		messages, err := repo.LikedByUser(ctx, liker.ID, 50, 0)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "liked second", messages[0].Text)
		assert.True(t, messages[0].Liked)
	})

	t.Run("Delete removes message and its likes", func(t *testing.T) {
		message := &models.Message{UserID: author.ID, Text: "short lived"}
		require.NoError(t, repo.Create(ctx, message))
		require.NoError(t, repo.Like(ctx, viewer.ID, message.ID))

		require.NoError(t, repo.Delete(ctx, message.ID))

		_, err := repo.GetByID(ctx, message.ID, 0)
		assert.Error(t, err)

		var likes int64
		db.Model(&models.Like{}).Where("message_id = ?", message.ID).Count(&likes)
		assert.Zero(t, likes)
	})
}

func TestMessageRepositoryTimeline(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	followRepo := NewFollowRepository(db)
	ctx := context.Background()

	viewer := createTestUser(t, db, "viewer")
	followed := createTestUser(t, db, "followed")
	stranger := createTestUser(t, db, "stranger")

	require.NoError(t, followRepo.Create(ctx, viewer.ID, followed.ID))

	mustCreate := func(userID uint, text string, at time.Time) {
		require.NoError(t, repo.Create(ctx, &models.Message{UserID: userID, Text: text, CreatedAt: at}))
	}
	now := time.Now()
	mustCreate(viewer.ID, "own old", now.Add(-2*time.Hour))
	mustCreate(followed.ID, "followed new", now.Add(-1*time.Hour))
	mustCreate(stranger.ID, "stranger", now)

	t.Run("Includes own and followed, newest first", func(t *testing.T) {
		messages, err := repo.Timeline(ctx, viewer.ID, 100)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "followed new", messages[0].Text)
		assert.Equal(t, "own old", messages[1].Text)
	})

	t.Run("Respects the limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			mustCreate(viewer.ID, "filler", now.Add(time.Duration(i)*time.Minute))
		}
		messages, err := repo.Timeline(ctx, viewer.ID, 3)
		require.NoError(t, err)
		assert.Len(t, messages, 3)
	})

	t.Run("Recent is site-wide", func(t *testing.T) {
		messages, err := repo.Recent(ctx, 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(messages), 3)

		var authors []string
		for _, m := range messages {
			authors = append(authors, m.User.Username)
		}
		assert.Contains(t, authors, "stranger")
	})
}

func TestMessageRepositoryAnonymousCache(t *testing.T) {
	withTestCache(t)
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	message := &models.Message{UserID: author.ID, Text: "cache me"}
	require.NoError(t, repo.Create(ctx, message))

	// The anonymous view is cached: after the row is gone, a second
	// anonymous read still serves it.
	_, err := repo.GetByID(ctx, message.ID, 0)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.Message{}, message.ID).Error)

	fetched, err := repo.GetByID(ctx, message.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "cache me", fetched.Text)
	assert.Equal(t, "author", fetched.User.Username)

	// A signed-in viewer bypasses the cache because the liked column is
	// viewer-specific.
	_, err = repo.GetByID(ctx, message.ID, author.ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestMessageRepositoryLikeInvalidatesCache(t *testing.T) {
	withTestCache(t)
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	liker := createTestUser(t, db, "liker")
	message := &models.Message{UserID: author.ID, Text: "likeable"}
	require.NoError(t, repo.Create(ctx, message))

	first, err := repo.GetByID(ctx, message.ID, 0)
	require.NoError(t, err)
	require.Zero(t, first.LikesCount)

	require.NoError(t, repo.Like(ctx, liker.ID, message.ID))

	fetched, err := repo.GetByID(ctx, message.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.LikesCount, "a like must not be hidden by a stale cache entry")
}

func TestMessageRepositoryCountLikedByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	liker := createTestUser(t, db, "liker")

	for _, text := range []string{"one", "two"} {
		message := &models.Message{UserID: author.ID, Text: text}
		require.NoError(t, repo.Create(ctx, message))
		require.NoError(t, repo.Like(ctx, liker.ID, message.ID))
	}

	count, err := repo.CountLikedByUser(ctx, liker.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountLikedByUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
