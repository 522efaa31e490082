package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/controllers"
	"github.com/theleywin/prolinka/src/lib"
	"github.com/theleywin/prolinka/src/middleware"
)

// Handlers groups the controllers mounted by Register.
type Handlers struct {
	Auth        *controllers.AuthController
	Users       *controllers.UserController
	Connections *controllers.ConnectionController
	Posts       *controllers.PostController
}

// Register mounts every API route and the health check on app.
func Register(app *fiber.App, h Handlers, verifier middleware.TokenVerifier) {
	protect := middleware.ProtectRoute(verifier)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(lib.MessageResponse("RUNNING"))
	})

	AuthRoutes(app, h.Auth)
	UserRoutes(app, h.Users, protect)
	ConnectionRoutes(app, h.Connections, protect)
	PostRoutes(app, h.Posts, protect)
}
