package controllers

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/lib"
	"github.com/theleywin/prolinka/src/middleware"
	"github.com/theleywin/prolinka/src/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var statusByCode = map[string]int{
	errs.ENOTFOUND:     fiber.StatusNotFound,
	errs.ECONFLICT:     fiber.StatusConflict,
	errs.EFORBIDDEN:    fiber.StatusForbidden,
	errs.EINVALIDSTATE: fiber.StatusConflict,
	errs.EINVALID:      fiber.StatusBadRequest,
	errs.EUNAUTHORIZED: fiber.StatusUnauthorized,
}

// StatusCode returns the HTTP status for an application error.
func StatusCode(err error) int {
	if status, ok := statusByCode[errs.ErrorCode(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// HandleError writes err as a {"message": ...} response. Internal causes are
// logged and never sent to the client.
func HandleError(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	if status == fiber.StatusInternalServerError {
		lib.GetLogger().Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(lib.MessageResponse(errs.ErrorMessage(err)))
}

// ErrorHandler is the fiber app error handler. It keeps fiber's own errors
// (404 on unknown routes, 413 on oversized bodies) and maps everything else
// through HandleError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(lib.MessageResponse(fe.Message))
	}
	return HandleError(c, err)
}

func paramID(c *fiber.Ctx, name, what string) (primitive.ObjectID, error) {
	return parseID(c.Params(name), what)
}

func parseID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errs.Errorf(errs.EINVALID, "Invalid %s ID format", what)
	}
	return id, nil
}

func caller(c *fiber.Ctx) (primitive.ObjectID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return primitive.NilObjectID, errs.Errorf(errs.EUNAUTHORIZED, "Unauthorized")
	}
	return id, nil
}

// formUpload returns the uploaded file of field, or nil when there is none.
// The caller closes the returned file.
func formUpload(c *fiber.Ctx, field string) (*services.Upload, multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, errs.Internalf(err, "failed to read upload")
	}
	return &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Reader:      file,
	}, file, nil
}
