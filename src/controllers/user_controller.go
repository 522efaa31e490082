package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"github.com/theleywin/prolinka/src/services"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// GetMe returns the caller with its profile.
func (ctl *UserController) GetMe(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	user, profile, err := ctl.users.GetUserAndProfile(c.UserContext(), userID)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{"user": user, "profile": profile})
}

func (ctl *UserController) UpdateMe(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	var update models.UserUpdate
	if err := c.BodyParser(&update); err != nil {
		return HandleError(c, errs.Errorf(errs.EINVALID, "Invalid request body"))
	}

	user, err := ctl.users.UpdateUser(c.UserContext(), userID, update)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User updated", "user": user})
}

func (ctl *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	var update models.ProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		return HandleError(c, errs.Errorf(errs.EINVALID, "Invalid request body"))
	}

	profile, err := ctl.users.UpdateProfile(c.UserContext(), userID, update)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile updated", "profile": profile})
}

func (ctl *UserController) UploadProfilePicture(c *fiber.Ctx) error {
	return ctl.uploadPicture(c, "profile_picture", models.PictureProfile)
}

func (ctl *UserController) UploadCoverPicture(c *fiber.Ctx) error {
	return ctl.uploadPicture(c, "cover_picture", models.PictureCover)
}

func (ctl *UserController) uploadPicture(c *fiber.Ctx, formField string, field models.PictureField) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	upload, file, err := formUpload(c, formField)
	if err != nil {
		return HandleError(c, err)
	}
	if upload == nil {
		return HandleError(c, errs.Errorf(errs.EINVALID, "No file uploaded"))
	}
	defer file.Close()

	url, err := ctl.users.UploadPicture(c.UserContext(), userID, field, *upload)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Picture updated", string(field): url})
}

func (ctl *UserController) ListProfiles(c *fiber.Ctx) error {
	profiles, err := ctl.users.ListProfiles(c.UserContext())
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(profiles)
}

func (ctl *UserController) TopProfiles(c *fiber.Ctx) error {
	profiles, err := ctl.users.TopProfiles(c.UserContext())
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(profiles)
}

func (ctl *UserController) GetByUsername(c *fiber.Ctx) error {
	profile, err := ctl.users.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(profile)
}
