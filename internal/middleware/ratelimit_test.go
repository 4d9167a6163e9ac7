package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCheckRateLimit(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, client := testRedis(t)
	ctx := context.Background()

	t.Run("Allows up to the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := CheckRateLimit(ctx, client, "login", "ip:1.2.3.4", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, err := CheckRateLimit(ctx, client, "login", "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("Window reset restores quota", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)

		allowed, err := CheckRateLimit(ctx, client, "login", "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Keys are isolated per id", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := CheckRateLimit(ctx, client, "login", "ip:5.6.7.8", 3, time.Minute)
			require.NoError(t, err)
		}
		allowed, err := CheckRateLimit(ctx, client, "login", "ip:9.9.9.9", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Nil client is an error", func(t *testing.T) {
		_, err := CheckRateLimit(ctx, nil, "login", "ip:1.2.3.4", 3, time.Minute)
		assert.Error(t, err)
	})
}

func TestCheckRateLimitDisabledOutsideProduction(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	allowed, err := CheckRateLimit(context.Background(), nil, "login", "ip:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, client := testRedis(t)

	app := fiber.New()
	app.Post("/login", RateLimit(client, 2, time.Minute, "login"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRateLimitFailurePolicies(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	t.Run("FailOpen lets requests through without Redis", func(t *testing.T) {
		app := fiber.New()
		app.Post("/x", RateLimitWithPolicy(nil, 1, time.Minute, FailOpen, "x"), func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/x", nil), -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("FailClosed returns 503 without Redis", func(t *testing.T) {
		app := fiber.New()
		app.Post("/x", RateLimitWithPolicy(nil, 1, time.Minute, FailClosed, "x"), func(c *fiber.Ctx) error {
			return c.SendStatus(http.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/x", nil), -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
