// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const UserIDLocal = "user_id"

var errMissingUserID = errors.New("token missing user_id")

// ParseUserToken verifies an HS256 token and returns its user_id claim.
func ParseUserToken(secret, tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errMissingUserID
	}
	return uuid.Parse(raw)
}

func bearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return authHeader[7:]
}

// NewJwtMiddleware stores the caller's uuid under UserIDLocal.
func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := bearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		userID, err := ParseUserToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals(UserIDLocal, userID)
		return ctx.Next()
	}
}

// TokenFromRequest prefers the token query parameter, which browsers use for websockets.
func TokenFromRequest(ctx *fiber.Ctx) string {
	if t := ctx.Query("token"); t != "" {
		return t
	}
	return bearerToken(ctx)
}

// UserID reads the id NewJwtMiddleware stored.
func UserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := ctx.Locals(UserIDLocal).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, fiber.ErrUnauthorized
	}
	return userID, nil
}
