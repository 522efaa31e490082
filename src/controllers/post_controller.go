package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/services"
)

type PostController struct {
	posts *services.PostService
}

func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

type commentBody struct {
	Body string `json:"body"`
}

func (ctl *PostController) ListPosts(c *fiber.Ctx) error {
	posts, err := ctl.posts.ListPosts(c.UserContext())
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost reads a multipart form with a body and an optional media file.
func (ctl *PostController) CreatePost(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	upload, file, err := formUpload(c, "media")
	if err != nil {
		return HandleError(c, err)
	}
	if file != nil {
		defer file.Close()
	}

	post, err := ctl.posts.CreatePost(c.UserContext(), userID, c.FormValue("body"), upload)
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (ctl *PostController) DeletePost(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	postID, err := paramID(c, "id", "post")
	if err != nil {
		return HandleError(c, err)
	}
	if err := ctl.posts.DeletePost(c.UserContext(), userID, postID); err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

func (ctl *PostController) LikePost(c *fiber.Ctx) error {
	postID, err := paramID(c, "id", "post")
	if err != nil {
		return HandleError(c, err)
	}
	likes, err := ctl.posts.LikePost(c.UserContext(), postID)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post liked", "likes": likes})
}

func (ctl *PostController) AddComment(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	postID, err := paramID(c, "id", "post")
	if err != nil {
		return HandleError(c, err)
	}
	var body commentBody
	if err := c.BodyParser(&body); err != nil {
		return HandleError(c, errs.Errorf(errs.EINVALID, "Invalid request body"))
	}

	comment, err := ctl.posts.AddComment(c.UserContext(), userID, postID, body.Body)
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (ctl *PostController) ListComments(c *fiber.Ctx) error {
	postID, err := paramID(c, "id", "post")
	if err != nil {
		return HandleError(c, err)
	}
	comments, err := ctl.posts.ListComments(c.UserContext(), postID)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(comments)
}

func (ctl *PostController) DeleteComment(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	commentID, err := paramID(c, "id", "comment")
	if err != nil {
		return HandleError(c, err)
	}
	if err := ctl.posts.DeleteComment(c.UserContext(), userID, commentID); err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}
