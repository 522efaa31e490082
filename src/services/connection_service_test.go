package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"github.com/theleywin/prolinka/src/repository/memory"
	"github.com/theleywin/prolinka/src/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishConnectionEvent(ctx context.Context, event models.ConnectionEvent) error {
	return m.Called(ctx, event).Error(0)
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	svc   *services.ConnectionService
	repo  *memory.ConnectionRepository
	users *memory.UserRepository
}

func newFixture(t *testing.T, opts ...services.ConnectionOption) *fixture {
	t.Helper()
	repo := memory.NewConnectionRepository()
	users := memory.NewUserRepository()
	c := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]services.ConnectionOption{services.WithConnectionClock(c.Now)}, opts...)
	return &fixture{
		svc:   services.NewConnectionService(repo, users, nil, zap.NewNop(), opts...),
		repo:  repo,
		users: users,
	}
}

func (f *fixture) user(t *testing.T, username string) primitive.ObjectID {
	t.Helper()
	u := &models.User{
		Id:             primitive.NewObjectID(),
		Name:           username,
		Username:       username,
		Email:          username + "@prolinka.test",
		ProfilePicture: models.DefaultPicture,
	}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u.Id
}

func TestRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a pending edge once and conflict on repeat", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")

		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)

		edge, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusPending, edge.Status)
		assert.Equal(t, a, edge.RequesterId)
		assert.Equal(t, b, edge.TargetId)
		assert.Equal(t, edge.RequestedAt, edge.UpdatedAt)

		_, err = f.svc.Request(ctx, a, b)
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
		assert.Equal(t, services.MsgAlreadyRequested, errs.ErrorMessage(err))

		sent, err := f.repo.ListByRequester(ctx, a)
		require.NoError(t, err)
		assert.Len(t, sent, 1)
	})

	t.Run("should report already connected after acceptance", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, id, b, models.DecisionAccept))

		_, err = f.svc.Request(ctx, a, b)
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
		assert.Equal(t, services.MsgAlreadyConnected, errs.ErrorMessage(err))

		_, err = f.svc.Request(ctx, b, a)
		assert.Equal(t, services.MsgAlreadyConnected, errs.ErrorMessage(err))
	})

	t.Run("should reject unknown users", func(t *testing.T) {
		f := newFixture(t)
		a := f.user(t, "ana")

		_, err := f.svc.Request(ctx, a, primitive.NewObjectID())
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
		assert.Equal(t, services.MsgUnknownUser, errs.ErrorMessage(err))

		_, err = f.svc.Request(ctx, primitive.NewObjectID(), a)
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
	})

	t.Run("should reject self connections", func(t *testing.T) {
		f := newFixture(t)
		a := f.user(t, "ana")

		_, err := f.svc.Request(ctx, a, a)
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("should allow a new request after rejection", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		first, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, first, b, models.DecisionReject))

		second, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		edge, err := f.repo.FindByID(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusPending, edge.Status)

		old, err := f.repo.FindByID(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusRejected, old.Status)
	})

	t.Run("should keep crossed requests independent by default", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		ab, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		ba, err := f.svc.Request(ctx, b, a)
		require.NoError(t, err)

		for _, id := range []primitive.ObjectID{ab, ba} {
			edge, err := f.repo.FindByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.ConnectionStatusPending, edge.Status)
		}
	})

	t.Run("should merge crossed requests when enabled", func(t *testing.T) {
		f := newFixture(t, services.WithAutoAcceptCrossed(true))
		a, b := f.user(t, "ana"), f.user(t, "bob")
		ab, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		ba, err := f.svc.Request(ctx, b, a)
		require.NoError(t, err)

		for _, id := range []primitive.ObjectID{ab, ba} {
			edge, err := f.repo.FindByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.ConnectionStatusAccepted, edge.Status)
		}

		list, err := f.svc.ListForUser(ctx, b)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, a, list[0].OtherUserId)
		assert.Equal(t, models.DirectionReceived, list[0].Direction)
	})

	t.Run("should create exactly one edge under concurrent requests", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")

		var wg sync.WaitGroup
		results := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Request(ctx, a, b)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
		}
		assert.Equal(t, 1, succeeded)
	})
}

func TestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("should accept and materialize the mirror edge", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)

		require.NoError(t, f.svc.Respond(ctx, id, b, models.DecisionAccept))

		edge, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusAccepted, edge.Status)
		assert.True(t, edge.UpdatedAt.After(edge.RequestedAt))

		mirror, err := f.repo.FindOpen(ctx, b, a)
		require.NoError(t, err)
		require.NotNil(t, mirror)
		assert.Equal(t, models.ConnectionStatusAccepted, mirror.Status)
		assert.Equal(t, edge.UpdatedAt, mirror.RequestedAt)
	})

	t.Run("should reuse a pending reverse edge as the mirror", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		ab, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		ba, err := f.svc.Request(ctx, b, a)
		require.NoError(t, err)

		require.NoError(t, f.svc.Respond(ctx, ab, b, models.DecisionAccept))

		reverse, err := f.repo.FindByID(ctx, ba)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusAccepted, reverse.Status)

		sent, err := f.repo.ListByRequester(ctx, b)
		require.NoError(t, err)
		assert.Len(t, sent, 1)

		err = f.svc.Respond(ctx, ba, a, models.DecisionAccept)
		assert.Equal(t, errs.EINVALIDSTATE, errs.ErrorCode(err))
	})

	t.Run("should keep a rejected reverse edge rejected and add a fresh mirror", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		ba, err := f.svc.Request(ctx, b, a)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, ba, a, models.DecisionReject))

		ab, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, ab, b, models.DecisionAccept))

		rejected, err := f.repo.FindByID(ctx, ba)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusRejected, rejected.Status)

		mirror, err := f.repo.FindOpen(ctx, b, a)
		require.NoError(t, err)
		require.NotNil(t, mirror)
		assert.NotEqual(t, ba, mirror.Id)
		assert.Equal(t, models.ConnectionStatusAccepted, mirror.Status)

		sent, err := f.repo.ListByRequester(ctx, b)
		require.NoError(t, err)
		assert.Len(t, sent, 2)
	})

	t.Run("should reject without touching the reverse direction", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)

		require.NoError(t, f.svc.Respond(ctx, id, b, models.DecisionReject))

		edge, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusRejected, edge.Status)

		reverse, err := f.repo.ListByRequester(ctx, b)
		require.NoError(t, err)
		assert.Empty(t, reverse)
	})

	t.Run("should refuse to respond twice", func(t *testing.T) {
		for _, first := range []models.Decision{models.DecisionAccept, models.DecisionReject} {
			f := newFixture(t)
			a, b := f.user(t, "ana"), f.user(t, "bob")
			id, err := f.svc.Request(ctx, a, b)
			require.NoError(t, err)
			require.NoError(t, f.svc.Respond(ctx, id, b, first))
			before, err := f.repo.FindByID(ctx, id)
			require.NoError(t, err)

			for _, second := range []models.Decision{models.DecisionAccept, models.DecisionReject} {
				err := f.svc.Respond(ctx, id, b, second)
				assert.Equal(t, errs.EINVALIDSTATE, errs.ErrorCode(err))
				assert.Equal(t, services.MsgAlreadyResponded, errs.ErrorMessage(err))
			}

			after, err := f.repo.FindByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		}
	})

	t.Run("should only let the target respond", func(t *testing.T) {
		f := newFixture(t)
		a, b, c := f.user(t, "ana"), f.user(t, "bob"), f.user(t, "cy")
		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)

		for _, responder := range []primitive.ObjectID{a, c} {
			err := f.svc.Respond(ctx, id, responder, models.DecisionAccept)
			assert.Equal(t, errs.EFORBIDDEN, errs.ErrorCode(err))
			assert.Equal(t, services.MsgNotAuthorized, errs.ErrorMessage(err))
		}

		edge, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusPending, edge.Status)
	})

	t.Run("should report unknown edges", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Respond(ctx, primitive.NewObjectID(), f.user(t, "bob"), models.DecisionAccept)
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
		assert.Equal(t, services.MsgEdgeNotFound, errs.ErrorMessage(err))
	})

	t.Run("should reject unknown decisions", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Respond(ctx, primitive.NewObjectID(), f.user(t, "bob"), models.Decision("maybe"))
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("should let exactly one concurrent responder win", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make(chan error, 10)
		for i := 0; i < 10; i++ {
			decision := models.DecisionAccept
			if i%2 == 1 {
				decision = models.DecisionReject
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- f.svc.Respond(ctx, id, b, decision)
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.Equal(t, errs.EINVALIDSTATE, errs.ErrorCode(err))
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("should leave the primary pending when the mirror write fails", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)

		failing := &failingMirrorRepo{ConnectionRepository: f.repo}
		svc := services.NewConnectionService(failing, f.users, nil, zap.NewNop())

		err = svc.Respond(ctx, id, b, models.DecisionAccept)
		assert.Equal(t, errs.EINTERNAL, errs.ErrorCode(err))

		edge, err := f.repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionStatusPending, edge.Status)

		mirror, err := f.repo.FindLatest(ctx, b, a)
		require.NoError(t, err)
		assert.Nil(t, mirror)
	})
}

// failingMirrorRepo fails every insert made inside a transaction.
type failingMirrorRepo struct {
	services.ConnectionRepository
}

func (r *failingMirrorRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx services.ConnectionRepository) error) error {
	return r.ConnectionRepository.WithTransaction(ctx, func(ctx context.Context, tx services.ConnectionRepository) error {
		return fn(ctx, &failingInsertTx{ConnectionRepository: tx})
	})
}

type failingInsertTx struct {
	services.ConnectionRepository
}

func (t *failingInsertTx) Insert(ctx context.Context, edge *models.Connection) error {
	return errors.New("write concern timeout")
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("should show one accepted entry per side after acceptance", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		id, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, id, b, models.DecisionAccept))

		listA, err := f.svc.ListForUser(ctx, a)
		require.NoError(t, err)
		require.Len(t, listA, 1)
		assert.Equal(t, b, listA[0].OtherUserId)
		assert.Equal(t, models.ConnectionStatusAccepted, listA[0].Status)
		assert.Equal(t, models.DirectionSent, listA[0].Direction)
		assert.Equal(t, id, listA[0].EdgeId)
		require.NotNil(t, listA[0].OtherUserInfo)
		assert.Equal(t, "bob", listA[0].OtherUserInfo.Username)

		listB, err := f.svc.ListForUser(ctx, b)
		require.NoError(t, err)
		require.Len(t, listB, 1)
		assert.Equal(t, a, listB[0].OtherUserId)
		assert.Equal(t, models.ConnectionStatusAccepted, listB[0].Status)
		assert.Equal(t, models.DirectionReceived, listB[0].Direction)
		assert.Equal(t, id, listB[0].EdgeId)
	})

	t.Run("should show the accepted request as sent by its requester after an earlier rejection", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		first, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, first, b, models.DecisionReject))

		second, err := f.svc.Request(ctx, b, a)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, second, a, models.DecisionAccept))

		accepted := func(list []models.AnnotatedConnection) []models.AnnotatedConnection {
			var out []models.AnnotatedConnection
			for _, entry := range list {
				if entry.Status == models.ConnectionStatusAccepted {
					out = append(out, entry)
				}
			}
			return out
		}

		listA, err := f.svc.ListForUser(ctx, a)
		require.NoError(t, err)
		require.Len(t, listA, 2)
		gotA := accepted(listA)
		require.Len(t, gotA, 1)
		assert.Equal(t, second, gotA[0].EdgeId)
		assert.Equal(t, models.DirectionReceived, gotA[0].Direction)

		listB, err := f.svc.ListForUser(ctx, b)
		require.NoError(t, err)
		require.Len(t, listB, 2)
		gotB := accepted(listB)
		require.Len(t, gotB, 1)
		assert.Equal(t, second, gotB[0].EdgeId)
		assert.Equal(t, models.DirectionSent, gotB[0].Direction)

		for _, entry := range append(listA, listB...) {
			if entry.EdgeId == first {
				assert.Equal(t, models.ConnectionStatusRejected, entry.Status)
			}
		}
	})

	t.Run("should not dedupe pending requests from different users", func(t *testing.T) {
		f := newFixture(t)
		a, b, c := f.user(t, "ana"), f.user(t, "bob"), f.user(t, "cy")
		_, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		_, err = f.svc.Request(ctx, c, b)
		require.NoError(t, err)

		list, err := f.svc.ListForUser(ctx, b)
		require.NoError(t, err)
		require.Len(t, list, 2)
		others := []primitive.ObjectID{list[0].OtherUserId, list[1].OtherUserId}
		assert.ElementsMatch(t, []primitive.ObjectID{a, c}, others)
		for _, entry := range list {
			assert.Equal(t, models.ConnectionStatusPending, entry.Status)
			assert.Equal(t, models.DirectionReceived, entry.Direction)
		}
		assert.Equal(t, c, list[0].OtherUserId, "newest first")
	})

	t.Run("should keep pending and rejected rows with the same user", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.user(t, "ana"), f.user(t, "bob")
		first, err := f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, f.svc.Respond(ctx, first, b, models.DecisionReject))
		_, err = f.svc.Request(ctx, a, b)
		require.NoError(t, err)
		_, err = f.svc.Request(ctx, b, a)
		require.NoError(t, err)

		list, err := f.svc.ListForUser(ctx, a)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, models.DirectionReceived, list[0].Direction)
		assert.Equal(t, models.ConnectionStatusPending, list[0].Status)
		assert.Equal(t, models.DirectionSent, list[1].Direction)
		assert.Equal(t, models.ConnectionStatusPending, list[1].Status)
		assert.Equal(t, models.ConnectionStatusRejected, list[2].Status)
	})

	t.Run("should be deterministic", func(t *testing.T) {
		f := newFixture(t)
		a := f.user(t, "ana")
		for _, name := range []string{"bob", "cy", "dee", "eve"} {
			_, err := f.svc.Request(ctx, a, f.user(t, name))
			require.NoError(t, err)
		}

		first, err := f.svc.ListForUser(ctx, a)
		require.NoError(t, err)
		second, err := f.svc.ListForUser(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("should return an empty list for a user without edges", func(t *testing.T) {
		f := newFixture(t)
		list, err := f.svc.ListForUser(ctx, f.user(t, "ana"))
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.NotNil(t, list)
	})
}

func TestConnectionsOf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c := f.user(t, "ana"), f.user(t, "bob"), f.user(t, "cy")
	ab, err := f.svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, f.svc.Respond(ctx, ab, b, models.DecisionAccept))
	_, err = f.svc.Request(ctx, c, a)
	require.NoError(t, err)

	connections, err := f.svc.ConnectionsOf(ctx, a)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, b, connections[0].OtherUserId)
}

func TestStatusBetween(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b := f.user(t, "ana"), f.user(t, "bob")

	rel, err := f.svc.StatusBetween(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, models.RelationNotConnected, rel.Status)

	id, err := f.svc.Request(ctx, a, b)
	require.NoError(t, err)

	rel, err = f.svc.StatusBetween(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, models.RelationPending, rel.Status)
	require.NotNil(t, rel.EdgeId)
	assert.Equal(t, id, *rel.EdgeId)

	rel, err = f.svc.StatusBetween(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, models.RelationReceived, rel.Status)

	require.NoError(t, f.svc.Respond(ctx, id, b, models.DecisionAccept))
	for _, pair := range [][2]primitive.ObjectID{{a, b}, {b, a}} {
		rel, err = f.svc.StatusBetween(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, models.RelationConnected, rel.Status)
	}

	_, err = f.svc.StatusBetween(ctx, a, a)
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestConnectionEvents(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewConnectionRepository()
	users := memory.NewUserRepository()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	require.NoError(t, users.CreateUser(ctx, &models.User{Id: a, Username: "ana", Email: "ana@prolinka.test"}))
	require.NoError(t, users.CreateUser(ctx, &models.User{Id: b, Username: "bob", Email: "bob@prolinka.test"}))

	publisher := &mockPublisher{}
	publisher.On("PublishConnectionEvent", mock.Anything, mock.MatchedBy(func(e models.ConnectionEvent) bool {
		return e.Kind == models.ConnectionRequested && e.Status == models.ConnectionStatusPending
	})).Return(nil).Once()
	publisher.On("PublishConnectionEvent", mock.Anything, mock.MatchedBy(func(e models.ConnectionEvent) bool {
		return e.Kind == models.ConnectionAccepted && e.Status == models.ConnectionStatusAccepted
	})).Return(errors.New("nats: no servers available")).Once()

	svc := services.NewConnectionService(repo, users, publisher, zap.NewNop())

	id, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, svc.Respond(ctx, id, b, models.DecisionAccept), "publish failures are not fatal")

	publisher.AssertExpectations(t)
}
