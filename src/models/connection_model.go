package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Connection is one directed connection request edge. An accepted
// relationship is persisted as two accepted edges, one per direction.
type Connection struct {
	Id          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	RequesterId primitive.ObjectID `json:"requesterId" bson:"requesterId"`
	TargetId    primitive.ObjectID `json:"targetId" bson:"targetId"`
	Status      ConnectionStatus   `json:"status" bson:"status"`
	RequestedAt time.Time          `json:"requestedAt" bson:"requestedAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusRejected ConnectionStatus = "rejected"
)

// Open reports whether the edge blocks a new request for the same ordered pair.
func (s ConnectionStatus) Open() bool {
	return s == ConnectionStatusPending || s == ConnectionStatusAccepted
}

type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// AnnotatedConnection is an edge as seen by one user.
type AnnotatedConnection struct {
	EdgeId        primitive.ObjectID `json:"edgeId"`
	OtherUserId   primitive.ObjectID `json:"otherUserId"`
	OtherUserInfo *UserDto           `json:"otherUserInfo"`
	Status        ConnectionStatus   `json:"status"`
	Direction     Direction          `json:"direction"`
	RequestedAt   time.Time          `json:"requestedAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// RelationStatus is the relationship between a viewer and another user.
type RelationStatus string

const (
	RelationConnected    RelationStatus = "connected"
	RelationPending      RelationStatus = "pending"
	RelationReceived     RelationStatus = "received"
	RelationNotConnected RelationStatus = "not_connected"
)

type ConnectionRelation struct {
	Status RelationStatus      `json:"status"`
	EdgeId *primitive.ObjectID `json:"edgeId,omitempty"`
}

type ConnectionEventKind string

const (
	ConnectionRequested ConnectionEventKind = "requested"
	ConnectionAccepted  ConnectionEventKind = "accepted"
	ConnectionRejected  ConnectionEventKind = "rejected"
)

// ConnectionEvent is published after an edge changes.
type ConnectionEvent struct {
	Kind        ConnectionEventKind `json:"kind"`
	EdgeId      primitive.ObjectID  `json:"edgeId"`
	RequesterId primitive.ObjectID  `json:"requesterId"`
	TargetId    primitive.ObjectID  `json:"targetId"`
	Status      ConnectionStatus    `json:"status"`
	OccurredAt  time.Time           `json:"occurredAt"`
}
