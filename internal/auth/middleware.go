package auth

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
)

const contextKey = "user"

// Protect rejects requests without a valid bearer token. Requests for which
// skip returns true pass through untouched.
func Protect(secret []byte, skip func(c *fiber.Ctx) bool) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    secret,
		SigningMethod: "HS256",
		ContextKey:    contextKey,
		Claims:        &Claims{},
		Filter:        skip,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "unauthorized"})
		},
	})
}

// RequireAdmin only lets through requests whose token carries is_admin.
// It must run after Protect.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "unauthorized"})
		}
		if !claims.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "admin permission required"})
		}
		return c.Next()
	}
}

// Passthrough is used in place of a guard when authentication is disabled.
func Passthrough() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}

// ClaimsFromCtx extracts the session claims stored by Protect.
func ClaimsFromCtx(c *fiber.Ctx) (*Claims, error) {
	tok, ok := c.Locals(contextKey).(*jwt.Token)
	if !ok || tok == nil {
		return nil, fiber.ErrUnauthorized
	}

	switch claims := tok.Claims.(type) {
	case *Claims:
		return claims, nil
	case jwt.MapClaims:
		out := &Claims{}
		if v, ok := claims["user_id"].(string); ok {
			out.UserID = v
		}
		if v, ok := claims["is_admin"].(bool); ok {
			out.IsAdmin = v
		}
		if out.UserID == "" {
			return nil, fiber.ErrUnauthorized
		}
		return out, nil
	default:
		return nil, fiber.ErrUnauthorized
	}
}
