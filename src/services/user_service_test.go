package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/lib"
	"github.com/theleywin/prolinka/src/models"
	"github.com/theleywin/prolinka/src/repository/memory"
	"github.com/theleywin/prolinka/src/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockMediaStore struct {
	mock.Mock
}

func (m *mockMediaStore) Save(ctx context.Context, folder string, upload services.Upload) (string, error) {
	args := m.Called(ctx, folder, upload)
	return args.String(0), args.Error(1)
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate(ctx context.Context, ids ...primitive.ObjectID) error {
	return m.Called(ctx, ids).Error(0)
}

func newUserService(t *testing.T) (*services.UserService, *memory.UserRepository, *mockMediaStore, *mockInvalidator, *lib.TokenIssuer) {
	t.Helper()
	users := memory.NewUserRepository()
	media := &mockMediaStore{}
	cache := &mockInvalidator{}
	tokens := lib.NewTokenIssuer("s3cret", time.Hour)
	return services.NewUserService(users, tokens, media, cache, zap.NewNop()), users, media, cache, tokens
}

func register(t *testing.T, svc *services.UserService, username string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), services.RegisterInput{
		Name:     strings.ToUpper(username),
		Username: username,
		Email:    username + "@prolinka.test",
		Password: "hunter22",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("should register with a welcome profile and log in", func(t *testing.T) {
		svc, users, _, _, tokens := newUserService(t)
		user := register(t, svc, "ana")

		assert.NotEqual(t, "hunter22", user.Password)
		assert.Equal(t, models.DefaultPicture, user.ProfilePicture)

		_, profile, err := svc.GetUserAndProfile(ctx, user.Id)
		require.NoError(t, err)
		assert.Equal(t, "Not specified", profile.Location)
		assert.Contains(t, profile.Bio, "ProLinka")

		token, loggedIn, err := svc.Login(ctx, "ANA@prolinka.test", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, user.Id, loggedIn.Id)

		userID, err := tokens.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, user.Id, userID)

		exists, err := users.ExistsByID(ctx, user.Id)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("should require every field", func(t *testing.T) {
		svc, _, _, _, _ := newUserService(t)
		_, err := svc.Register(ctx, services.RegisterInput{Name: "Ana", Email: "ana@prolinka.test", Password: "x"})
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("should refuse duplicate users", func(t *testing.T) {
		svc, _, _, _, _ := newUserService(t)
		register(t, svc, "ana")
		_, err := svc.Register(ctx, services.RegisterInput{Name: "Other", Username: "ana", Email: "other@prolinka.test", Password: "x"})
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
	})

	t.Run("should distinguish unknown email from wrong password", func(t *testing.T) {
		svc, _, _, _, _ := newUserService(t)
		register(t, svc, "ana")

		_, _, err := svc.Login(ctx, "nobody@prolinka.test", "hunter22")
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))

		_, _, err = svc.Login(ctx, "ana@prolinka.test", "wrong")
		assert.Equal(t, errs.EUNAUTHORIZED, errs.ErrorCode(err))
	})
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _, cache, _ := newUserService(t)
	ana := register(t, svc, "ana")
	register(t, svc, "bob")
	cache.On("Invalidate", mock.Anything, []primitive.ObjectID{ana.Id}).Return(nil)

	t.Run("should refuse a username used by someone else", func(t *testing.T) {
		taken := "bob"
		_, err := svc.UpdateUser(ctx, ana.Id, models.UserUpdate{Username: &taken})
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
	})

	t.Run("should update and invalidate the cached display info", func(t *testing.T) {
		name := "Ana Maria"
		user, err := svc.UpdateUser(ctx, ana.Id, models.UserUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Ana Maria", user.Name)
		cache.AssertCalled(t, "Invalidate", mock.Anything, []primitive.ObjectID{ana.Id})
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newUserService(t)
	ana := register(t, svc, "ana")

	bio := "Gopher"
	work := []models.Work{{Company: "ProLinka", Position: "Engineer", Year: "2026"}}
	profile, err := svc.UpdateProfile(ctx, ana.Id, models.ProfileUpdate{Bio: &bio, PastWork: &work})
	require.NoError(t, err)
	assert.Equal(t, "Gopher", profile.Bio)
	assert.Equal(t, "Not specified", profile.Location)
	assert.Equal(t, work, profile.PastWork)

	_, err = svc.UpdateProfile(ctx, primitive.NewObjectID(), models.ProfileUpdate{Bio: &bio})
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestUploadPicture(t *testing.T) {
	ctx := context.Background()
	svc, users, media, cache, _ := newUserService(t)
	ana := register(t, svc, "ana")

	upload := services.Upload{Filename: "me.png", ContentType: "image/png", Size: 3, Reader: strings.NewReader("png")}
	media.On("Save", mock.Anything, "coverPicture", upload).Return("/uploads/coverPicture/x.png", nil).Once()
	cache.On("Invalidate", mock.Anything, []primitive.ObjectID{ana.Id}).Return(nil).Once()

	url, err := svc.UploadPicture(ctx, ana.Id, models.PictureCover, upload)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/coverPicture/x.png", url)

	stored, err := users.FindUserByID(ctx, ana.Id)
	require.NoError(t, err)
	assert.Equal(t, url, stored.CoverPicture)
	assert.Equal(t, models.DefaultPicture, stored.ProfilePicture)

	media.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newUserService(t)
	register(t, svc, "ana")
	time.Sleep(2 * time.Millisecond)
	register(t, svc, "bob")

	all, err := svc.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ana", all[0].User.Username)

	top, err := svc.TopProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].User.Username)

	byName, err := svc.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", byName.User.Username)

	_, err = svc.GetByUsername(ctx, "nobody")
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}
