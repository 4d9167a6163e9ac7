package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	MessageKeyPrefix = "message:%d"

	// MessagesListKey holds the anonymous recent-messages feed.
	MessagesListKey = "messages:recent"
)

const (
	UserTTL    = 5 * time.Minute
	MessageTTL = 10 * time.Minute
	ListTTL    = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func MessageKey(messageID uint) string {
	return fmt.Sprintf(MessageKeyPrefix, messageID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateMessage(ctx context.Context, messageID uint) {
	Invalidate(ctx, MessageKey(messageID))
}

func InvalidateMessagesList(ctx context.Context) {
	Invalidate(ctx, MessagesListKey)
}
