package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/lib"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const userIDKey = "userID"

// TokenVerifier resolves a bearer token to the id of the user it was issued to.
type TokenVerifier interface {
	Verify(token string) (primitive.ObjectID, error)
}

// ProtectRoute checks for a valid bearer token and stores the caller's id in
// the request locals.
func ProtectRoute(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - No token provided"))
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - Invalid token format"))
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(lib.MessageResponse("Unauthorized - Invalid token"))
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the caller set by ProtectRoute.
func UserID(c *fiber.Ctx) (primitive.ObjectID, bool) {
	id, ok := c.Locals(userIDKey).(primitive.ObjectID)
	return id, ok
}
