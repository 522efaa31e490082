package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"github.com/theleywin/prolinka/src/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConnectionController struct {
	connections *services.ConnectionService
}

func NewConnectionController(connections *services.ConnectionService) *ConnectionController {
	return &ConnectionController{connections: connections}
}

type requestBody struct {
	TargetID string `json:"targetId"`
}

type respondBody struct {
	EdgeID   string          `json:"edgeId"`
	Decision models.Decision `json:"decision"`
}

// SendRequest creates a pending request from the caller to :userId, or to
// targetId of the body when the path has no user.
func (ctl *ConnectionController) SendRequest(c *fiber.Ctx) error {
	requesterID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}

	raw := c.Params("userId")
	if raw == "" {
		var body requestBody
		if err := c.BodyParser(&body); err != nil {
			return HandleError(c, errs.Errorf(errs.EINVALID, "Invalid request body"))
		}
		raw = body.TargetID
	}
	targetID, err := parseID(raw, "user")
	if err != nil {
		return HandleError(c, err)
	}

	edgeID, err := ctl.connections.Request(c.UserContext(), requesterID, targetID)
	if err != nil {
		return HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Connection request sent successfully",
		"edgeId":  edgeID,
	})
}

func (ctl *ConnectionController) AcceptRequest(c *fiber.Ctx) error {
	return ctl.respondTo(c, models.DecisionAccept)
}

func (ctl *ConnectionController) RejectRequest(c *fiber.Ctx) error {
	return ctl.respondTo(c, models.DecisionReject)
}

func (ctl *ConnectionController) respondTo(c *fiber.Ctx, decision models.Decision) error {
	edgeID, err := paramID(c, "requestId", "request")
	if err != nil {
		return HandleError(c, err)
	}
	return ctl.respond(c, edgeID, decision)
}

// Respond applies {edgeId, decision} from the body.
func (ctl *ConnectionController) Respond(c *fiber.Ctx) error {
	var body respondBody
	if err := c.BodyParser(&body); err != nil {
		return HandleError(c, errs.Errorf(errs.EINVALID, "Invalid request body"))
	}
	edgeID, err := parseID(body.EdgeID, "request")
	if err != nil {
		return HandleError(c, err)
	}
	return ctl.respond(c, edgeID, body.Decision)
}

func (ctl *ConnectionController) respond(c *fiber.Ctx, edgeID primitive.ObjectID, decision models.Decision) error {
	responderID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	if err := ctl.connections.Respond(c.UserContext(), edgeID, responderID, decision); err != nil {
		return HandleError(c, err)
	}

	message := "Connection request accepted"
	if decision == models.DecisionReject {
		message = "Connection request rejected"
	}
	return c.JSON(fiber.Map{"message": message})
}

// List returns every connection of the caller, sent and received.
func (ctl *ConnectionController) List(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	list, err := ctl.connections.ListForUser(c.UserContext(), userID)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(list)
}

func (ctl *ConnectionController) ListAccepted(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	list, err := ctl.connections.ConnectionsOf(c.UserContext(), userID)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(list)
}

func (ctl *ConnectionController) Status(c *fiber.Ctx) error {
	viewerID, err := caller(c)
	if err != nil {
		return HandleError(c, err)
	}
	otherID, err := paramID(c, "userId", "user")
	if err != nil {
		return HandleError(c, err)
	}
	rel, err := ctl.connections.StatusBetween(c.UserContext(), viewerID, otherID)
	if err != nil {
		return HandleError(c, err)
	}
	return c.JSON(rel)
}
