package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rezabhm/slaughter-erp/internal/engine"
	"github.com/rezabhm/slaughter-erp/internal/schema"
	"github.com/rezabhm/slaughter-erp/internal/store"
)

// Handler serves the login/refresh endpoints over the user entity.
type Handler struct {
	db         store.Store
	userSchema *schema.EntitySchema
	secret     string
	accessTTL  time.Duration
}

func NewHandler(db store.Store, userSchema *schema.EntitySchema, secret string, accessTTL time.Duration) *Handler {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Handler{db: db, userSchema: userSchema, secret: secret, accessTTL: accessTTL}
}

// RegisterRoutes mounts the auth endpoints. No auth middleware here.
func RegisterRoutes(app *fiber.App, h *Handler) {
	grp := app.Group("/auth")
	grp.Post("/login", h.Login)
	grp.Post("/refresh", h.Refresh)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respond(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body"))
	}
	if body.Username == "" || body.Password == "" {
		return respond(c, engine.UnauthorizedError("Username and password are required"))
	}

	users, err := h.db.Filter(c.Context(), h.userSchema,
		store.Filters{"username__exact": body.Username}, "")
	if err != nil || len(users) == 0 {
		return respond(c, engine.UnauthorizedError("Invalid username or password"))
	}
	user := users[0]

	hash, _ := user["password_hash"].(string)
	if !CheckPassword(body.Password, hash) {
		return respond(c, engine.UnauthorizedError("Invalid username or password"))
	}

	return h.issuePair(c, user)
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respond(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body"))
	}

	claims, err := ParseToken(body.RefreshToken, h.secret)
	if err != nil || claims.TokenType != "refresh" {
		return respond(c, engine.UnauthorizedError("Invalid refresh token"))
	}

	user, err := h.db.Get(c.Context(), h.userSchema, claims.Subject)
	if err != nil {
		return respond(c, engine.UnauthorizedError("Invalid refresh token"))
	}

	return h.issuePair(c, user)
}

func (h *Handler) issuePair(c *fiber.Ctx, user map[string]any) error {
	id, _ := user[h.userSchema.PrimaryKey].(string)
	name, _ := user["username"].(string)
	roles := extractRoles(user["roles"])

	access, err := GenerateToken(id, name, roles, "access", h.accessTTL, h.secret)
	if err != nil {
		return err
	}
	refresh, err := GenerateToken(id, name, roles, "refresh", RefreshTokenTTL, h.secret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": TokenPair{AccessToken: access, RefreshToken: refresh}})
}

func extractRoles(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
