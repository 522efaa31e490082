package memory

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"github.com/theleywin/prolinka/src/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConnectionRepository keeps edges in memory and enforces the same
// uniqueness rules as the Mongo indexes.
type ConnectionRepository struct {
	mu    sync.Mutex
	edges map[primitive.ObjectID]models.Connection
}

func NewConnectionRepository() *ConnectionRepository {
	return &ConnectionRepository{edges: make(map[primitive.ObjectID]models.Connection)}
}

func (r *ConnectionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByID(id)
}

func (r *ConnectionRepository) FindOpen(ctx context.Context, requesterID, targetID primitive.ObjectID) (*models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findOpen(requesterID, targetID), nil
}

func (r *ConnectionRepository) FindLatest(ctx context.Context, requesterID, targetID primitive.ObjectID) (*models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLatest(requesterID, targetID), nil
}

func (r *ConnectionRepository) Insert(ctx context.Context, edge *models.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(edge)
}

func (r *ConnectionRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ConnectionStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transition(id, from, to, at)
}

func (r *ConnectionRepository) ListByRequester(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(e models.Connection) bool { return e.RequesterId == userID }), nil
}

func (r *ConnectionRepository) ListByTarget(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(e models.Connection) bool { return e.TargetId == userID }), nil
}

// WithTransaction holds the store lock for the whole of fn and restores the
// previous state if fn fails.
func (r *ConnectionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx services.ConnectionRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := maps.Clone(r.edges)
	if err := fn(ctx, &connectionTx{r: r}); err != nil {
		r.edges = snapshot
		return err
	}
	return nil
}

func (r *ConnectionRepository) findByID(id primitive.ObjectID) (*models.Connection, error) {
	edge, ok := r.edges[id]
	if !ok {
		return nil, errs.Errorf(errs.ENOTFOUND, "connection not found")
	}
	return &edge, nil
}

func (r *ConnectionRepository) findOpen(requesterID, targetID primitive.ObjectID) *models.Connection {
	edges := r.list(func(e models.Connection) bool {
		return e.RequesterId == requesterID && e.TargetId == targetID && e.Status.Open()
	})
	if len(edges) == 0 {
		return nil
	}
	return edges[0]
}

func (r *ConnectionRepository) findLatest(requesterID, targetID primitive.ObjectID) *models.Connection {
	edges := r.list(func(e models.Connection) bool {
		return e.RequesterId == requesterID && e.TargetId == targetID
	})
	if len(edges) == 0 {
		return nil
	}
	return edges[0]
}

func (r *ConnectionRepository) insert(edge *models.Connection) error {
	if edge.Id.IsZero() {
		edge.Id = primitive.NewObjectID()
	}
	if _, ok := r.edges[edge.Id]; ok {
		return errs.Errorf(errs.ECONFLICT, "duplicate connection id")
	}
	if r.duplicates(edge.Id, edge.RequesterId, edge.TargetId, edge.Status) {
		return errs.Errorf(errs.ECONFLICT, "duplicate %s connection", edge.Status)
	}
	r.edges[edge.Id] = *edge
	return nil
}

func (r *ConnectionRepository) transition(id primitive.ObjectID, from, to models.ConnectionStatus, at time.Time) error {
	edge, ok := r.edges[id]
	if !ok {
		return errs.Errorf(errs.ENOTFOUND, "connection not found")
	}
	if edge.Status != from {
		return errs.Errorf(errs.EINVALIDSTATE, "connection is %s, not %s", edge.Status, from)
	}
	if r.duplicates(id, edge.RequesterId, edge.TargetId, to) {
		return errs.Errorf(errs.ECONFLICT, "duplicate %s connection", to)
	}
	edge.Status = to
	edge.UpdatedAt = at
	r.edges[id] = edge
	return nil
}

// duplicates mirrors the open-pair unique index: at most one pending or
// accepted edge per ordered pair.
func (r *ConnectionRepository) duplicates(id, requesterID, targetID primitive.ObjectID, status models.ConnectionStatus) bool {
	if !status.Open() {
		return false
	}
	for otherID, e := range r.edges {
		if otherID != id && e.RequesterId == requesterID && e.TargetId == targetID && e.Status.Open() {
			return true
		}
	}
	return false
}

// list returns matching edges, most recently requested first.
func (r *ConnectionRepository) list(match func(models.Connection) bool) []*models.Connection {
	out := make([]*models.Connection, 0)
	for _, e := range r.edges {
		if match(e) {
			edge := e
			out = append(out, &edge)
		}
	}
	slices.SortFunc(out, func(a, b *models.Connection) int {
		if c := b.RequestedAt.Compare(a.RequestedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.Id[:], a.Id[:])
	})
	return out
}

// connectionTx runs against the parent store while its lock is held.
type connectionTx struct {
	r *ConnectionRepository
}

func (t *connectionTx) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	return t.r.findByID(id)
}

func (t *connectionTx) FindOpen(ctx context.Context, requesterID, targetID primitive.ObjectID) (*models.Connection, error) {
	return t.r.findOpen(requesterID, targetID), nil
}

func (t *connectionTx) Insert(ctx context.Context, edge *models.Connection) error {
	return t.r.insert(edge)
}

func (t *connectionTx) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ConnectionStatus, at time.Time) error {
	return t.r.transition(id, from, to, at)
}

func (t *connectionTx) ListByRequester(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error) {
	return t.r.list(func(e models.Connection) bool { return e.RequesterId == userID }), nil
}

func (t *connectionTx) ListByTarget(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error) {
	return t.r.list(func(e models.Connection) bool { return e.TargetId == userID }), nil
}

func (t *connectionTx) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx services.ConnectionRepository) error) error {
	return fn(ctx, t)
}
