package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/services"
)

type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user with a default profile.
func (ctl *AuthController) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return HandleError(c, errs.Errorf(errs.EINVALID, "Invalid request body"))
	}

	user, err := ctl.users.Register(c.UserContext(), in)
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

func (ctl *AuthController) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := c.BodyParser(&in); err != nil {
		return HandleError(c, errs.Errorf(errs.EINVALID, "Invalid request body"))
	}

	token, user, err := ctl.users.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Logged in successfully",
		"token":   token,
		"user":    user,
	})
}
