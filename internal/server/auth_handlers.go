package server

import (
	"fmt"
	"strconv"
	"time"

	"chirper/internal/models"
	"chirper/internal/service"
	"chirper/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signup handles POST /signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	user, err := s.authService.Signup(c.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Message == models.MsgDuplicateUser {
			return models.RespondWithError(c, fiber.StatusConflict, err)
		}
		return s.respondServiceError(c, err)
	}

	token, err := s.establishSession(c, user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(models.MsgInvalidCredentials))
	}

	token, err := s.establishSession(c, user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /logout. It destroys the server-side session and
// revokes the Bearer token's JTI when one was presented.
func (s *Server) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(SessionCookieName); token != "" {
		if err := s.sessions.Destroy(c.Context(), token); err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		}
	}
	s.clearSessionCookie(c)
	s.revokeBearerToken(c)

	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

// establishSession creates the server-side session, sets the cookie and
// issues a JWT for API clients.
func (s *Server) establishSession(c *fiber.Ctx, user *models.User) (string, error) {
	sessToken, err := s.sessions.Create(c.Context(), user.ID)
	if err != nil {
		return "", err
	}
	s.setSessionCookie(c, sessToken)
	return s.generateToken(user.ID, user.Username)
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(session.DefaultTTL),
		HTTPOnly: true,
		Secure:   s.config.Env == "production" || s.config.Env == "prod",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
}

// revokeBearerToken blacklists the JTI of a presented Bearer token until the
// token would have expired. Best effort: no Redis means no revocation list.
func (s *Server) revokeBearerToken(c *fiber.Ctx) {
	if s.redis == nil {
		return
	}
	authHeader := c.Get("Authorization")
	if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
		return
	}

	token, err := jwt.Parse(authHeader[7:], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return
	}

	ttl := time.Hour
	if exp, expOk := claims["exp"].(float64); expOk {
		if until := time.Until(time.Unix(int64(exp), 0)); until > 0 {
			ttl = until
		}
	}
	s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl)
}

// generateToken creates a JWT token for the given user ID and username
func (s *Server) generateToken(userID uint, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10), // Subject (user ID as string)
		"username": username,                               // Username (cached in token)
		"iss":      "chirper-api",                          // Issuer
		"aud":      "chirper-client",                       // Audience
		"exp":      now.Add(time.Hour * 24 * 7).Unix(),     // Expiration (7 days)
		"iat":      now.Unix(),                             // Issued at
		"nbf":      now.Unix(),                             // Not before
		"jti":      s.generateJTI(),                        // JWT ID (unique identifier)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
