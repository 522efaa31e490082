package services

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/theleywin/prolinka/src/services")

// Reason strings returned to API clients.
const (
	MsgUnknownUser       = "unknown user"
	MsgSelfRequest       = "cannot send a connection request to yourself"
	MsgAlreadyConnected  = "already connected"
	MsgAlreadyRequested  = "connection request already sent"
	MsgEdgeNotFound      = "connection request not found"
	MsgNotAuthorized     = "not authorized to respond to this connection request"
	MsgAlreadyResponded  = "connection request already responded"
	MsgInvalidDecision   = "decision must be accept or reject"
	MsgSelfStatus        = "cannot check the connection status with yourself"
	msgConnectionFailure = "failed to process connection request"
)

type ConnectionService struct {
	repo              ConnectionRepository
	directory         UserDirectory
	events            ConnectionEventPublisher
	logger            *zap.Logger
	locks             *keyedMutex
	autoAcceptCrossed bool
	now               func() time.Time
}

type ConnectionOption func(*ConnectionService)

// WithAutoAcceptCrossed makes a request that meets a pending request in the
// opposite direction accept both at once.
func WithAutoAcceptCrossed(enabled bool) ConnectionOption {
	return func(s *ConnectionService) { s.autoAcceptCrossed = enabled }
}

func WithConnectionClock(now func() time.Time) ConnectionOption {
	return func(s *ConnectionService) { s.now = now }
}

func NewConnectionService(repo ConnectionRepository, directory UserDirectory, events ConnectionEventPublisher, logger *zap.Logger, opts ...ConnectionOption) *ConnectionService {
	s := &ConnectionService{
		repo:      repo,
		directory: directory,
		events:    events,
		logger:    logger,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request creates a pending edge from requesterID to targetID.
func (s *ConnectionService) Request(ctx context.Context, requesterID, targetID primitive.ObjectID) (edgeID primitive.ObjectID, err error) {
	ctx, span := tracer.Start(ctx, "connections.Request", trace.WithAttributes(
		attribute.String("requester.id", requesterID.Hex()),
		attribute.String("target.id", targetID.Hex()),
	))
	defer func() { endSpan(span, err) }()

	if requesterID == targetID {
		return primitive.NilObjectID, errs.Errorf(errs.EINVALID, MsgSelfRequest)
	}
	for _, id := range []primitive.ObjectID{requesterID, targetID} {
		exists, err := s.directory.ExistsByID(ctx, id)
		if err != nil {
			return primitive.NilObjectID, errs.Internalf(err, msgConnectionFailure)
		}
		if !exists {
			return primitive.NilObjectID, errs.Errorf(errs.ENOTFOUND, MsgUnknownUser)
		}
	}

	unlock := s.locks.Lock(pairKey(requesterID, targetID))
	defer unlock()

	open, err := s.repo.FindOpen(ctx, requesterID, targetID)
	if err != nil {
		return primitive.NilObjectID, errs.Internalf(err, msgConnectionFailure)
	}
	if open != nil {
		if open.Status == models.ConnectionStatusAccepted {
			return primitive.NilObjectID, errs.Errorf(errs.ECONFLICT, MsgAlreadyConnected)
		}
		return primitive.NilObjectID, errs.Errorf(errs.ECONFLICT, MsgAlreadyRequested)
	}

	now := s.now()
	edge := &models.Connection{
		Id:          primitive.NewObjectID(),
		RequesterId: requesterID,
		TargetId:    targetID,
		Status:      models.ConnectionStatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}

	if s.autoAcceptCrossed {
		reverse, err := s.repo.FindOpen(ctx, targetID, requesterID)
		if err != nil {
			return primitive.NilObjectID, errs.Internalf(err, msgConnectionFailure)
		}
		if reverse != nil && reverse.Status == models.ConnectionStatusPending {
			return s.acceptCrossed(ctx, reverse, edge, now)
		}
	}

	if err := s.repo.Insert(ctx, edge); err != nil {
		return primitive.NilObjectID, insertError(err)
	}

	s.logger.Info("Connection requested",
		zap.String("edgeId", edge.Id.Hex()),
		zap.String("requesterId", requesterID.Hex()),
		zap.String("targetId", targetID.Hex()),
	)
	s.publish(ctx, models.ConnectionRequested, edge, now)
	return edge.Id, nil
}

// acceptCrossed accepts the pending reverse edge and stores edge as its
// accepted mirror in one unit.
func (s *ConnectionService) acceptCrossed(ctx context.Context, reverse, edge *models.Connection, now time.Time) (primitive.ObjectID, error) {
	edge.Status = models.ConnectionStatusAccepted
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx ConnectionRepository) error {
		if err := tx.TransitionStatus(ctx, reverse.Id, models.ConnectionStatusPending, models.ConnectionStatusAccepted, now); err != nil {
			return err
		}
		return tx.Insert(ctx, edge)
	})
	if err != nil {
		return primitive.NilObjectID, insertError(err)
	}

	reverse.Status = models.ConnectionStatusAccepted
	s.logger.Info("Crossed connection requests merged",
		zap.String("edgeId", edge.Id.Hex()),
		zap.String("reverseEdgeId", reverse.Id.Hex()),
	)
	s.publish(ctx, models.ConnectionAccepted, reverse, now)
	return edge.Id, nil
}

func insertError(err error) error {
	switch errs.ErrorCode(err) {
	case errs.ECONFLICT, errs.EINVALIDSTATE:
		return errs.Wrap(errs.ECONFLICT, err, MsgAlreadyRequested)
	default:
		return errs.Internalf(err, msgConnectionFailure)
	}
}

// Respond accepts or rejects a pending edge addressed to responderID. On
// accept the reverse edge is made accepted in the same unit of work.
func (s *ConnectionService) Respond(ctx context.Context, edgeID, responderID primitive.ObjectID, decision models.Decision) (err error) {
	ctx, span := tracer.Start(ctx, "connections.Respond", trace.WithAttributes(
		attribute.String("edge.id", edgeID.Hex()),
		attribute.String("responder.id", responderID.Hex()),
		attribute.String("decision", string(decision)),
	))
	defer func() { endSpan(span, err) }()

	if !decision.Valid() {
		return errs.Errorf(errs.EINVALID, MsgInvalidDecision)
	}

	edge, err := s.repo.FindByID(ctx, edgeID)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return errs.Wrap(errs.ENOTFOUND, err, MsgEdgeNotFound)
		}
		return errs.Internalf(err, msgConnectionFailure)
	}
	if edge.TargetId != responderID {
		return errs.Errorf(errs.EFORBIDDEN, MsgNotAuthorized)
	}
	if edge.Status != models.ConnectionStatusPending {
		return errs.Errorf(errs.EINVALIDSTATE, MsgAlreadyResponded)
	}

	unlock := s.locks.Lock(pairKey(edge.RequesterId, edge.TargetId))
	defer unlock()

	now := s.now()
	status, kind := models.ConnectionStatusRejected, models.ConnectionRejected
	if decision == models.DecisionAccept {
		status, kind = models.ConnectionStatusAccepted, models.ConnectionAccepted
		err = s.repo.WithTransaction(ctx, func(ctx context.Context, tx ConnectionRepository) error {
			if err := tx.TransitionStatus(ctx, edge.Id, models.ConnectionStatusPending, models.ConnectionStatusAccepted, now); err != nil {
				return err
			}
			return s.acceptMirror(ctx, tx, edge, now)
		})
	} else {
		err = s.repo.TransitionStatus(ctx, edge.Id, models.ConnectionStatusPending, status, now)
	}
	if err != nil {
		switch errs.ErrorCode(err) {
		case errs.EINVALIDSTATE:
			return errs.Wrap(errs.EINVALIDSTATE, err, MsgAlreadyResponded)
		case errs.ENOTFOUND:
			return errs.Wrap(errs.ENOTFOUND, err, MsgEdgeNotFound)
		default:
			s.logger.Error("Failed to respond to connection request", zap.String("edgeId", edgeID.Hex()), zap.Error(err))
			return errs.Internalf(err, msgConnectionFailure)
		}
	}

	edge.Status = status
	edge.UpdatedAt = now
	s.logger.Info("Connection request answered",
		zap.String("edgeId", edge.Id.Hex()),
		zap.String("status", string(edge.Status)),
	)
	s.publish(ctx, kind, edge, now)
	return nil
}

// acceptMirror makes the reverse of edge accepted: an open reverse edge is
// moved to accepted, otherwise a new accepted edge is created. Rejected
// reverse edges stay rejected.
func (s *ConnectionService) acceptMirror(ctx context.Context, tx ConnectionRepository, edge *models.Connection, now time.Time) error {
	reverse, err := tx.FindOpen(ctx, edge.TargetId, edge.RequesterId)
	if err != nil {
		return errs.Wrap(errs.EINTERNAL, err, "failed to look up mirror connection")
	}

	switch {
	case reverse == nil:
		err = tx.Insert(ctx, &models.Connection{
			Id:          primitive.NewObjectID(),
			RequesterId: edge.TargetId,
			TargetId:    edge.RequesterId,
			Status:      models.ConnectionStatusAccepted,
			RequestedAt: now,
			UpdatedAt:   now,
		})
	case reverse.Status == models.ConnectionStatusAccepted:
		return nil
	default:
		err = tx.TransitionStatus(ctx, reverse.Id, models.ConnectionStatusPending, models.ConnectionStatusAccepted, now)
	}
	if err != nil {
		return errs.Wrap(errs.EINTERNAL, err, "failed to write mirror connection")
	}
	return nil
}

// ListForUser returns every edge userID sent or received, annotated from
// userID's point of view. An accepted relationship appears once per other
// user; pending and rejected edges are all returned.
func (s *ConnectionService) ListForUser(ctx context.Context, userID primitive.ObjectID) (list []models.AnnotatedConnection, err error) {
	ctx, span := tracer.Start(ctx, "connections.ListForUser", trace.WithAttributes(
		attribute.String("user.id", userID.Hex()),
	))
	defer func() { endSpan(span, err) }()

	sent, err := s.repo.ListByRequester(ctx, userID)
	if err != nil {
		return nil, errs.Internalf(err, "failed to list connections")
	}
	received, err := s.repo.ListByTarget(ctx, userID)
	if err != nil {
		return nil, errs.Internalf(err, "failed to list connections")
	}

	list = annotate(sent, received)
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]primitive.ObjectID, 0, len(list))
	for _, entry := range list {
		ids = append(ids, entry.OtherUserId)
	}
	info, err := s.directory.DisplayInfo(ctx, ids)
	if err != nil {
		return nil, errs.Internalf(err, "failed to load user info")
	}
	for i := range list {
		if dto, ok := info[list[i].OtherUserId]; ok {
			list[i].OtherUserInfo = &dto
		}
	}
	span.SetAttributes(attribute.Int("connections.count", len(list)))
	return list, nil
}

// annotate tags and dedupes edges. For an accepted pair the surviving entry
// is the edge that started the relationship (earliest requestedAt); sent
// edges are visited first so they win ties.
func annotate(sent, received []*models.Connection) []models.AnnotatedConnection {
	list := make([]models.AnnotatedConnection, 0, len(sent)+len(received))
	accepted := make(map[primitive.ObjectID]int)

	add := func(edge *models.Connection, direction models.Direction, other primitive.ObjectID) {
		entry := models.AnnotatedConnection{
			EdgeId:      edge.Id,
			OtherUserId: other,
			Status:      edge.Status,
			Direction:   direction,
			RequestedAt: edge.RequestedAt,
			UpdatedAt:   edge.UpdatedAt,
		}
		if edge.Status != models.ConnectionStatusAccepted {
			list = append(list, entry)
			return
		}
		if i, seen := accepted[other]; seen {
			if entry.RequestedAt.Before(list[i].RequestedAt) {
				list[i] = entry
			}
			return
		}
		accepted[other] = len(list)
		list = append(list, entry)
	}

	for _, edge := range sent {
		add(edge, models.DirectionSent, edge.TargetId)
	}
	for _, edge := range received {
		add(edge, models.DirectionReceived, edge.RequesterId)
	}

	slices.SortStableFunc(list, func(a, b models.AnnotatedConnection) int {
		if c := b.RequestedAt.Compare(a.RequestedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.EdgeId[:], a.EdgeId[:])
	})
	return list
}

// ConnectionsOf returns the accepted entries of ListForUser.
func (s *ConnectionService) ConnectionsOf(ctx context.Context, userID primitive.ObjectID) ([]models.AnnotatedConnection, error) {
	list, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	accepted := list[:0]
	for _, entry := range list {
		if entry.Status == models.ConnectionStatusAccepted {
			accepted = append(accepted, entry)
		}
	}
	return accepted, nil
}

// StatusBetween describes the relationship between viewerID and otherID.
func (s *ConnectionService) StatusBetween(ctx context.Context, viewerID, otherID primitive.ObjectID) (rel models.ConnectionRelation, err error) {
	ctx, span := tracer.Start(ctx, "connections.StatusBetween")
	defer func() { endSpan(span, err) }()

	if viewerID == otherID {
		return rel, errs.Errorf(errs.EINVALID, MsgSelfStatus)
	}

	sent, err := s.repo.FindOpen(ctx, viewerID, otherID)
	if err != nil {
		return rel, errs.Internalf(err, "failed to load connection status")
	}
	received, err := s.repo.FindOpen(ctx, otherID, viewerID)
	if err != nil {
		return rel, errs.Internalf(err, "failed to load connection status")
	}

	switch {
	case sent != nil && sent.Status == models.ConnectionStatusAccepted,
		received != nil && received.Status == models.ConnectionStatusAccepted:
		return models.ConnectionRelation{Status: models.RelationConnected}, nil
	case sent != nil:
		return models.ConnectionRelation{Status: models.RelationPending, EdgeId: &sent.Id}, nil
	case received != nil:
		return models.ConnectionRelation{Status: models.RelationReceived, EdgeId: &received.Id}, nil
	default:
		return models.ConnectionRelation{Status: models.RelationNotConnected}, nil
	}
}

func (s *ConnectionService) publish(ctx context.Context, kind models.ConnectionEventKind, edge *models.Connection, at time.Time) {
	if s.events == nil {
		return
	}
	event := models.ConnectionEvent{
		Kind:        kind,
		EdgeId:      edge.Id,
		RequesterId: edge.RequesterId,
		TargetId:    edge.TargetId,
		Status:      edge.Status,
		OccurredAt:  at,
	}
	if err := s.events.PublishConnectionEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish connection event",
			zap.String("kind", string(kind)),
			zap.String("edgeId", edge.Id.Hex()),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errs.ErrorMessage(err))
	}
	span.End()
}
