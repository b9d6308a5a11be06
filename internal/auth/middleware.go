package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rezabhm/slaughter-erp/internal/engine"
)

// Middleware returns a Fiber middleware that validates bearer tokens and
// sets the UserContext on the request.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return respond(c, engine.UnauthorizedError("Missing auth token"))
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return respond(c, engine.UnauthorizedError("Invalid auth header format"))
		}

		claims, err := ParseToken(parts[1], secret)
		if err != nil || claims.TokenType != "access" {
			return respond(c, engine.UnauthorizedError("Invalid or expired token"))
		}

		c.Locals("user", &engine.UserContext{
			ID:    claims.Subject,
			Name:  claims.Name,
			Roles: claims.Roles,
		})

		return c.Next()
	}
}

func respond(c *fiber.Ctx, appErr *engine.AppError) error {
	return c.Status(appErr.Status).JSON(appErr)
}
