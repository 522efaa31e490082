package events

import (
	"context"

	"github.com/theleywin/prolinka/src/models"
)

// Noop drops every event. Used when NATS is not configured.
type Noop struct{}

func (Noop) PublishConnectionEvent(context.Context, models.ConnectionEvent) error { return nil }
