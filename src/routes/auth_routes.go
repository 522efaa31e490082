package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/controllers"
)

// AuthRoutes sets up registration and login
func AuthRoutes(app *fiber.App, ctl *controllers.AuthController) {
	auth := app.Group("/api/v1/auth")

	auth.Post("/register", ctl.Register)
	auth.Post("/login", ctl.Login)
}
