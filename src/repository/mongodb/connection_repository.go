package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/lib"
	"github.com/theleywin/prolinka/src/models"
	"github.com/theleywin/prolinka/src/services"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var newestFirst = bson.D{{Key: "requestedAt", Value: -1}, {Key: "_id", Value: -1}}

type ConnectionRepository struct {
	coll         *mongo.Collection
	transactions bool
	logger       *zap.Logger
}

// NewConnectionRepository stores edges in the connections collection. With
// transactions enabled (replica set or sharded cluster) WithTransaction uses
// a session transaction; otherwise failed units are compensated.
func NewConnectionRepository(db *mongo.Database, transactions bool, logger *zap.Logger) *ConnectionRepository {
	return &ConnectionRepository{
		coll:         db.Collection(lib.ConnectionsCollection),
		transactions: transactions,
		logger:       logger,
	}
}

func (r *ConnectionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	var edge models.Connection
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&edge); err != nil {
		return nil, readError(err, "connection")
	}
	return &edge, nil
}

func (r *ConnectionRepository) FindOpen(ctx context.Context, requesterID, targetID primitive.ObjectID) (*models.Connection, error) {
	return r.findOne(ctx, bson.M{
		"requesterId": requesterID,
		"targetId":    targetID,
		"status":      bson.M{"$in": bson.A{models.ConnectionStatusPending, models.ConnectionStatusAccepted}},
	})
}

func (r *ConnectionRepository) FindLatest(ctx context.Context, requesterID, targetID primitive.ObjectID) (*models.Connection, error) {
	return r.findOne(ctx, bson.M{"requesterId": requesterID, "targetId": targetID})
}

func (r *ConnectionRepository) findOne(ctx context.Context, filter bson.M) (*models.Connection, error) {
	var edge models.Connection
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetSort(newestFirst)).Decode(&edge)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, readError(err, "connection")
	}
	return &edge, nil
}

func (r *ConnectionRepository) Insert(ctx context.Context, edge *models.Connection) error {
	if edge.Id.IsZero() {
		edge.Id = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, edge); err != nil {
		return writeError(err, "connection")
	}
	return nil
}

func (r *ConnectionRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ConnectionStatus, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
	)
	if err != nil {
		return writeError(err, "connection")
	}
	if res.MatchedCount == 1 {
		return nil
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return errs.Errorf(errs.EINVALIDSTATE, "connection is %s, not %s", current.Status, from)
}

func (r *ConnectionRepository) ListByRequester(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error) {
	return r.list(ctx, bson.M{"requesterId": userID})
}

func (r *ConnectionRepository) ListByTarget(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error) {
	return r.list(ctx, bson.M{"targetId": userID})
}

func (r *ConnectionRepository) list(ctx context.Context, filter bson.M) ([]*models.Connection, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, readError(err, "connections")
	}
	defer cursor.Close(ctx)

	edges := make([]*models.Connection, 0)
	if err := cursor.All(ctx, &edges); err != nil {
		return nil, readError(err, "connections")
	}
	return edges, nil
}

func (r *ConnectionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx services.ConnectionRepository) error) error {
	if !r.transactions {
		return r.withCompensation(ctx, fn)
	}

	session, err := r.coll.Database().Client().StartSession()
	if err != nil {
		return errs.Wrap(errs.EINTERNAL, err, "failed to start session")
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, r)
	})
	return err
}

// withCompensation runs fn against a journal and undoes its writes in reverse
// order when fn fails.
func (r *ConnectionRepository) withCompensation(ctx context.Context, fn func(ctx context.Context, tx services.ConnectionRepository) error) error {
	j := &journal{ConnectionRepository: r}
	err := fn(ctx, j)
	if err == nil {
		return nil
	}

	if rbErr := j.rollback(context.WithoutCancel(ctx)); rbErr != nil {
		r.logger.Error("Failed to roll back connection writes", zap.Error(rbErr), zap.NamedError("cause", err))
		return errors.Join(err, rbErr)
	}
	return err
}

// journal records how to undo every write made through it.
type journal struct {
	*ConnectionRepository
	undo []func(ctx context.Context) error
}

func (j *journal) Insert(ctx context.Context, edge *models.Connection) error {
	if err := j.ConnectionRepository.Insert(ctx, edge); err != nil {
		return err
	}
	id := edge.Id
	j.undo = append(j.undo, func(ctx context.Context) error {
		_, err := j.coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return nil
}

func (j *journal) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ConnectionStatus, at time.Time) error {
	previous, err := j.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := j.ConnectionRepository.TransitionStatus(ctx, id, from, to, at); err != nil {
		return err
	}
	j.undo = append(j.undo, func(ctx context.Context) error {
		_, err := j.coll.UpdateOne(ctx,
			bson.M{"_id": id, "status": to},
			bson.M{"$set": bson.M{"status": from, "updatedAt": previous.UpdatedAt}},
		)
		return err
	})
	return nil
}

func (j *journal) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx services.ConnectionRepository) error) error {
	return fn(ctx, j)
}

func (j *journal) rollback(ctx context.Context) error {
	var failures []error
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](ctx); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}
