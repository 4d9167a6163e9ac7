package repository

import (
	"context"
	"testing"

	"chirper/internal/cache"
	"chirper/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// withTestCache backs the cache package with miniredis for the duration of
// the test.
func withTestCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(c)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Follow{},
		&models.Like{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Create and GetByID", func(t *testing.T) {
		user := &models.User{Username: "alice", Email: "alice@example.com", Password: "hashed"}
		err := repo.Create(ctx, user)
		assert.NoError(t, err)
		assert.NotZero(t, user.ID)

		fetched, err := repo.GetByID(ctx, user.ID)
		assert.NoError(t, err)
		assert.Equal(t, "alice", fetched.Username)
	})

	t.Run("Duplicate username is a validation error", func(t *testing.T) {
		dup := &models.User{Username: "alice", Email: "alice2@example.com", Password: "hashed"}
		err := repo.Create(ctx, dup)
		require.Error(t, err)

		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		assert.Equal(t, models.MsgDuplicateUser, appErr.Message)
	})

	t.Run("Duplicate email is a validation error", func(t *testing.T) {
		dup := &models.User{Username: "alice2", Email: "alice@example.com", Password: "hashed"}
		err := repo.Create(ctx, dup)
		require.Error(t, err)

		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, models.MsgDuplicateUser, appErr.Message)
	})

	t.Run("GetByUsername returns nil on miss", func(t *testing.T) {
		user, err := repo.GetByUsername(ctx, "nobody")
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("GetByID unknown is NOT_FOUND", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("Search is case-insensitive substring", func(t *testing.T) {
		createTestUser(t, db, "Bobby")
		createTestUser(t, db, "roberta")

		users, err := repo.Search(ctx, "ob", 50, 0)
		assert.NoError(t, err)
		assert.Len(t, users, 2)

		users, err = repo.Search(ctx, "BOB", 50, 0)
		assert.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("List orders by username", func(t *testing.T) {
		users, err := repo.List(ctx, 100, 0)
		assert.NoError(t, err)
		require.NotEmpty(t, users)
		for i := 1; i < len(users); i++ {
			assert.LessOrEqual(t, users[i-1].Username, users[i].Username)
		}
	})
}

func TestUserRepositoryCachedPasswordHash(t *testing.T) {
	withTestCache(t)
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "carol")

	first, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "hashed", first.Password)

	// Remove the row so a second read can only be served from the cache.
	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)

	second, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", second.Username)
	assert.Equal(t, "hashed", second.Password, "cache hits must carry the password hash")
}

func TestUserRepositoryDeleteInvalidatesCache(t *testing.T) {
	withTestCache(t)
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "doomed")
	_, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, user.ID))

	_, err = repo.GetByID(ctx, user.ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code, "a deleted user must not survive in the cache")
}

func TestUserRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	message := &models.Message{UserID: owner.ID, Text: "to be removed"}
	require.NoError(t, db.Create(message).Error)
	otherMessage := &models.Message{UserID: other.ID, Text: "survives"}
	require.NoError(t, db.Create(otherMessage).Error)

	require.NoError(t, db.Create(&models.Follow{FollowerID: owner.ID, FollowedID: other.ID}).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: other.ID, FollowedID: owner.ID}).Error)
	// Other user liked the owner's message; owner liked the other's.
	require.NoError(t, db.Create(&models.Like{UserID: other.ID, MessageID: message.ID}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: owner.ID, MessageID: otherMessage.ID}).Error)

	require.NoError(t, repo.Delete(ctx, owner.ID))

	var users, messages, follows, likes int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Message{}).Count(&messages)
	db.Model(&models.Follow{}).Count(&follows)
	db.Model(&models.Like{}).Count(&likes)

	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(1), messages, "only the other user's message survives")
	assert.Zero(t, follows, "both directions of the follow graph are cleaned")
	assert.Zero(t, likes, "likes by and on the deleted user are cleaned")
}
