package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the generic CRUD surface and the workflow action
// entry point. The single-create alias must precede the action route so
// /:resource/create does not resolve as an id.
func RegisterRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	api := app.Group("/", middleware...)

	api.Get("/:resource", h.BulkGet)
	api.Post("/:resource", h.BulkCreate)
	api.Patch("/:resource", h.BulkPatch)
	api.Delete("/:resource", h.BulkDelete)

	api.Post("/:resource/create", h.SingleCreate)

	api.Get("/:resource/:id", h.SingleGet)
	api.Patch("/:resource/:id", h.SinglePatch)
	api.Delete("/:resource/:id", h.SingleDelete)

	api.Post("/:resource/:id/:action", h.Action)
}
