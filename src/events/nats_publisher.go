package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/theleywin/prolinka/src/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// connectionMessage is the JSON body of a connection event.
type connectionMessage struct {
	Kind        string    `json:"kind"`
	EdgeID      string    `json:"edgeId"`
	RequesterID string    `json:"requesterId"`
	TargetID    string    `json:"targetId"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NatsPublisher publishes connection events on <prefix>.connection.<kind>.
type NatsPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

func NewNatsPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) *NatsPublisher {
	return &NatsPublisher{nc: nc, prefix: prefix, logger: logger}
}

func Subject(prefix string, kind models.ConnectionEventKind) string {
	return fmt.Sprintf("%s.connection.%s", prefix, kind)
}

func (p *NatsPublisher) PublishConnectionEvent(ctx context.Context, event models.ConnectionEvent) error {
	data, err := json.Marshal(connectionMessage{
		Kind:        string(event.Kind),
		EdgeID:      event.EdgeId.Hex(),
		RequesterID: event.RequesterId.Hex(),
		TargetID:    event.TargetId.Hex(),
		Status:      string(event.Status),
		OccurredAt:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connection event: %w", err)
	}

	msg := &nats.Msg{
		Subject: Subject(p.prefix, event.Kind),
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	p.logger.Debug("Publishing connection event", zap.String("subject", msg.Subject), zap.String("edgeId", event.EdgeId.Hex()))
	return p.nc.PublishMsg(msg)
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("prolinka"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}
