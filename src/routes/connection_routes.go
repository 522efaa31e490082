package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/controllers"
)

// ConnectionRoutes sets up connection routes for sending, accepting and rejecting requests, listing connections and checking connection status
func ConnectionRoutes(app *fiber.App, ctl *controllers.ConnectionController, protect fiber.Handler) {
	connection := app.Group("/api/v1/connections", protect)

	connection.Post("/request/:userId", ctl.SendRequest)
	connection.Post("/request", ctl.SendRequest)
	connection.Put("/accept/:requestId", ctl.AcceptRequest)
	connection.Put("/reject/:requestId", ctl.RejectRequest)
	connection.Post("/respond", ctl.Respond)
	connection.Get("/", ctl.List)
	connection.Get("/accepted", ctl.ListAccepted)
	connection.Get("/status/:userId", ctl.Status)
}
