package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/controllers"
)

// UserRoutes sets up the current user's account and profile routes plus the public profile listings
func UserRoutes(app *fiber.App, ctl *controllers.UserController, protect fiber.Handler) {
	user := app.Group("/api/v1/users")

	user.Get("/profiles", ctl.ListProfiles)
	user.Get("/top-profiles", ctl.TopProfiles)
	user.Get("/by-username/:username", ctl.GetByUsername)

	me := user.Group("/me", protect)
	me.Get("/", ctl.GetMe)
	me.Put("/", ctl.UpdateMe)
	me.Put("/profile", ctl.UpdateProfile)
	me.Post("/profile-picture", ctl.UploadProfilePicture)
	me.Post("/cover-picture", ctl.UploadCoverPicture)
}
