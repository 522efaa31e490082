package lib

import "github.com/gofiber/fiber/v2"

// MessageResponse returns the {"message": ...} body used by every handler.
func MessageResponse(message string) fiber.Map {
	return fiber.Map{
		"message": message,
	}
}
