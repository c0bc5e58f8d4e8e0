package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hatchboard/backend/internal/domain/auth"
)

// SetupRoutes sets up the routes for the application
func SetupRoutes(app *fiber.App, h *auth.Handler, mw *auth.Middleware) {
	api := app.Group("/v1")

	// health is public but reports whether the caller presented a usable token
	api.Get("/health", mw.OptionalAuth(), func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":        "ok",
			"authenticated": auth.GetIdentity(c) != nil,
		})
	})

	a := api.Group("/auth")
	a.Post("/register", h.Register)
	a.Post("/login", h.Login)
	a.Post("/refresh", h.Refresh)
	a.Post("/logout", h.Logout)

	a.Post("/logout-all", mw.RequireAuth(), h.LogoutAll)
	a.Get("/sessions", mw.RequireAuth(), h.Sessions)
	a.Put("/password", mw.RequireAuth(), h.ChangePassword)
	a.Get("/me", mw.RequireAuth(), h.Me)
}
