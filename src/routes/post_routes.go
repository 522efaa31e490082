package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/controllers"
)

// PostRoutes sets up post routes for the feed, creation, deletion, likes and comments
func PostRoutes(app *fiber.App, ctl *controllers.PostController, protect fiber.Handler) {
	post := app.Group("/api/v1/posts")

	post.Get("/", ctl.ListPosts)
	post.Post("/", protect, ctl.CreatePost)
	post.Delete("/:id", protect, ctl.DeletePost)
	post.Post("/:id/like", protect, ctl.LikePost)
	post.Post("/:id/comments", protect, ctl.AddComment)
	post.Get("/:id/comments", ctl.ListComments)

	comment := app.Group("/api/v1/comments", protect)
	comment.Delete("/:id", ctl.DeleteComment)
}
