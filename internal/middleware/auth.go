package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"

	"next-watch/internal/models"
)

const userLocalsKey = "user"

// ErrInvalidToken is returned for tokens that fail verification or carry
// no usable user id.
var ErrInvalidToken = errors.New("invalid bearer token")

// Authenticator verifies HS256 bearer tokens issued by the auth subsystem.
type Authenticator struct {
	secret   []byte
	adminIDs map[int]struct{}
}

// NewAuthenticator creates an Authenticator for secret. Users in adminIDs
// are treated as admins whatever their token's role claim says.
func NewAuthenticator(secret string, adminIDs ...int) *Authenticator {
	admins := make(map[int]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Authenticator{secret: []byte(secret), adminIDs: admins}
}

// Sign issues a token for user that expires after ttl.
func (a *Authenticator) Sign(user models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if user.Name != "" {
		claims["name"] = user.Name
	}
	if user.Role != "" {
		claims["role"] = user.Role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the user it identifies. The user
// id comes from the user_id claim, or from a numeric sub.
func (a *Authenticator) Verify(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	id, ok := claimID(claims["user_id"])
	if !ok {
		id, ok = claimID(claims["sub"])
	}
	if !ok || id <= 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	if _, ok := a.adminIDs[id]; ok {
		role = models.RoleAdmin
	}
	return &models.User{ID: id, Name: name, Role: role}, nil
}

func claimID(v any) (int, bool) {
	switch id := v.(type) {
	case float64:
		if id != float64(int(id)) {
			return 0, false
		}
		return int(id), true
	case string:
		n, err := strconv.Atoi(id)
		return n, err == nil
	}
	return 0, false
}

// Identity resolves the caller from the Authorization header. A request
// without the header continues as a guest; a malformed or invalid token
// is rejected with 401.
func Identity(auth *Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid Authorization header format, expected 'Bearer <token>'",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "empty bearer token",
			})
		}

		user, err := auth.Verify(token)
		if err != nil {
			slog.Debug("rejected bearer token", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid bearer token",
			})
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// RequireUser rejects guests with 401. It must run after Identity.
func RequireUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		if UserFrom(c) == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		return c.Next()
	}
}

// UserFrom returns the caller resolved by Identity, or nil for a guest.
func UserFrom(c fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalsKey).(*models.User)
	return user
}

// RequireAdmin rejects guests with 401 and non-admin users with 403. It
// must run after Identity.
func RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		user := UserFrom(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		if !user.IsAdmin() {
			slog.Warn("admin route denied", "path", c.Path(), "user_id", user.ID)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin role required",
			})
		}
		return c.Next()
	}
}
