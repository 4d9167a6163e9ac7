// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"chirper/internal/cache"
	"chirper/internal/config"
	"chirper/internal/database"
	"chirper/internal/middleware"
	"chirper/internal/models"
	"chirper/internal/repository"
	"chirper/internal/service"
	"chirper/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "chirper_session"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	sessions       session.Store
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	messageRepo    repository.MessageRepository
	followRepo     repository.FollowRepository
	authService    *service.AuthService
	userService    *service.UserService
	messageService *service.MessageService
	followService  *service.FollowService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	var sessions session.Store
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient, session.DefaultTTL)
	} else {
		sessions = session.NewMemoryStore(session.DefaultTTL)
	}

	return NewServerWithDeps(cfg, db, redisClient, sessions)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, sessions session.Store) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	followRepo := repository.NewFollowRepository(db)

	prom := middleware.InitMetrics("chirper-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		sessions:       sessions,
		promMiddleware: prom,
		userRepo:       userRepo,
		messageRepo:    messageRepo,
		followRepo:     followRepo,
	}
	server.authService = service.NewAuthService(userRepo)
	server.userService = service.NewUserService(userRepo, followRepo, messageRepo, server.authService)
	server.messageService = service.NewMessageService(messageRepo, userRepo)
	server.followService = service.NewFollowService(followRepo, userRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Landing: anonymous recent feed or the authed user's home timeline
	app.Get("/", s.Home)

	// Auth routes
	app.Post("/signup", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	app.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Post("/logout", s.AuthRequired(), s.Logout)

	// User routes, all behind auth. Static segments before the generic
	// /:id routes.
	users := app.Group("/users", s.AuthRequired())
	users.Get("/", s.ListUsers)
	users.Post("/follow/:id", s.FollowUser)
	users.Post("/stop-following/:id", s.StopFollowingUser)
	users.Post("/profile", s.UpdateProfile)
	users.Post("/delete", s.DeleteAccount)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/likes", s.GetLikedMessages)
	users.Get("/:id", s.GetUserProfile)

	// Message routes, all behind auth
	messages := app.Group("/messages", s.AuthRequired())
	messages.Post("/new", s.CreateMessage)
	messages.Post("/:id/delete", s.DeleteMessage)
	messages.Post("/:id/like", s.ToggleLike)
	messages.Get("/:id", s.GetMessage)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The app degrades without Redis, so its absence does not fail readiness.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. A request is
// authenticated either by the session cookie or by a Bearer JWT. Every
// failure mode responds 401 with the same generic message.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Session cookie
		if token := c.Cookies(SessionCookieName); token != "" {
			userID, err := s.sessions.Resolve(c.Context(), token)
			if err == nil {
				return s.authenticated(c, userID)
			}
			if err == session.ErrNotFound {
				// Stale cookie: clear it so the client stops sending it.
				s.clearSessionCookie(c)
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError(models.MsgAccessUnauthorized))
			}
			middleware.Logger.Warn("session resolve failed", "error", err)
		}

		// 2. Bearer JWT
		userID, ok := s.userIDFromJWT(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(models.MsgAccessUnauthorized))
		}
		return s.authenticated(c, userID)
	}
}

// authenticated stores the user ID in locals and the request context, then
// passes the request along. The account row is the source of truth: a deleted
// account may still hold another live session or an unexpired JWT, and those
// credentials must stop working the moment the row is gone.
func (s *Server) authenticated(c *fiber.Ctx, userID uint) error {
	if _, err := s.userRepo.GetByID(c.Context(), userID); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code != "NOT_FOUND" {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if token := c.Cookies(SessionCookieName); token != "" {
			_ = s.sessions.Destroy(c.Context(), token)
		}
		s.clearSessionCookie(c)
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(models.MsgAccessUnauthorized))
	}

	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
	return c.Next()
}

// userIDFromJWT validates the Bearer token and extracts the user ID.
func (s *Server) userIDFromJWT(c *fiber.Ctx) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "chirper-api" {
		return 0, false
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != "chirper-client" {
		return 0, false
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, false
	}

	// Check JTI for revocation
	if jti, exists := claims["jti"].(string); exists && jti != "" && s.redis != nil {
		isBlacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
		if err == nil && isBlacklisted > 0 {
			return 0, false
		}
	}

	return uint(userID), true
}

// optionalUserID extracts the viewer's user ID when the request carries
// valid credentials, without enforcing authentication.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	if token := c.Cookies(SessionCookieName); token != "" {
		if userID, err := s.sessions.Resolve(c.Context(), token); err == nil {
			return userID, true
		}
	}
	return s.userIDFromJWT(c)
}

// NewApp constructs the Fiber app with the shared config, including the JSON
// error handler for errors no handler mapped to a response.
func (s *Server) NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName: "Chirper API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
