package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 11

// Defaults of the profile created at registration.
const (
	welcomeBio         = "Hey there! I'm new to ProLinka. Excited to connect with professionals!"
	welcomeLocation    = "Not specified"
	welcomeCurrentPost = "New Member at ProLinka"
)

type RegisterInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserService struct {
	users  UserRepository
	tokens TokenGenerator
	media  MediaStore
	cache  DisplayInfoInvalidator
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(users UserRepository, tokens TokenGenerator, media MediaStore, cache DisplayInfoInvalidator, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		media:  media,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, errs.Errorf(errs.EINVALID, "All fields are required")
	}

	taken, err := s.users.CredentialsTaken(ctx, in.Username, in.Email, primitive.NilObjectID)
	if err != nil {
		return nil, errs.Internalf(err, "failed to register user")
	}
	if taken {
		return nil, errs.Errorf(errs.ECONFLICT, "User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return nil, errs.Internalf(err, "failed to register user")
	}

	now := s.now()
	user := &models.User{
		Id:             primitive.NewObjectID(),
		Name:           in.Name,
		Username:       in.Username,
		Email:          in.Email,
		Password:       string(hash),
		ProfilePicture: models.DefaultPicture,
		CoverPicture:   models.DefaultPicture,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errs.ErrorCode(err) == errs.ECONFLICT {
			return nil, errs.Wrap(errs.ECONFLICT, err, "User already exists")
		}
		return nil, errs.Internalf(err, "failed to register user")
	}

	profile := newProfile(user.Id, now)
	profile.Bio = welcomeBio
	profile.Location = welcomeLocation
	profile.CurrentPost = welcomeCurrentPost
	if _, err := s.users.EnsureProfile(ctx, profile); err != nil {
		return nil, errs.Internalf(err, "failed to create profile")
	}

	s.logger.Info("User registered", zap.String("userId", user.Id.Hex()), zap.String("username", user.Username))
	return user, nil
}

// Login checks the credentials and returns a bearer token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, errs.Errorf(errs.EINVALID, "All fields are required")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return "", nil, errs.Wrap(errs.ENOTFOUND, err, "User not found")
		}
		return "", nil, errs.Internalf(err, "failed to log in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, errs.Errorf(errs.EUNAUTHORIZED, "Invalid credentials")
	}

	token, err := s.tokens.Generate(user.Id)
	if err != nil {
		return "", nil, errs.Internalf(err, "failed to issue token")
	}
	return token, user, nil
}

// GetUserAndProfile loads a user with its profile, creating an empty profile
// for users that predate profiles.
func (s *UserService) GetUserAndProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, *models.Profile, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, nil, userError(err)
	}
	profile, err := s.users.EnsureProfile(ctx, newProfile(user.Id, s.now()))
	if err != nil {
		return nil, nil, errs.Internalf(err, "failed to load profile")
	}
	return user, profile, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	user, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, userError(err)
	}
	profile, err := s.users.EnsureProfile(ctx, newProfile(user.Id, s.now()))
	if err != nil {
		return nil, errs.Internalf(err, "failed to load profile")
	}
	return &models.UserProfile{Profile: *profile, User: user.Dto()}, nil
}

func (s *UserService) UpdateUser(ctx context.Context, userID primitive.ObjectID, update models.UserUpdate) (*models.User, error) {
	var username, email string
	if update.Username != nil {
		username = strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, errs.Errorf(errs.EINVALID, "Username cannot be empty")
		}
		update.Username = &username
	}
	if update.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" {
			return nil, errs.Errorf(errs.EINVALID, "Email cannot be empty")
		}
		update.Email = &email
	}

	if username != "" || email != "" {
		taken, err := s.users.CredentialsTaken(ctx, username, email, userID)
		if err != nil {
			return nil, errs.Internalf(err, "failed to update user")
		}
		if taken {
			return nil, errs.Errorf(errs.ECONFLICT, "Username or email already in use")
		}
	}

	user, err := s.users.UpdateUser(ctx, userID, update, s.now())
	if err != nil {
		if errs.ErrorCode(err) == errs.ECONFLICT {
			return nil, errs.Wrap(errs.ECONFLICT, err, "Username or email already in use")
		}
		return nil, userError(err)
	}
	s.invalidate(ctx, userID)
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update models.ProfileUpdate) (*models.Profile, error) {
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		return nil, userError(err)
	}
	if _, err := s.users.EnsureProfile(ctx, newProfile(userID, s.now())); err != nil {
		return nil, errs.Internalf(err, "failed to update profile")
	}
	profile, err := s.users.UpdateProfile(ctx, userID, update, s.now())
	if err != nil {
		return nil, errs.Internalf(err, "failed to update profile")
	}
	return profile, nil
}

// UploadPicture stores a profile or cover picture and records its URL.
func (s *UserService) UploadPicture(ctx context.Context, userID primitive.ObjectID, field models.PictureField, upload Upload) (string, error) {
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		return "", userError(err)
	}

	url, err := s.media.Save(ctx, string(field), upload)
	if err != nil {
		return "", errs.Internalf(err, "failed to store picture")
	}
	if err := s.users.SetPicture(ctx, userID, field, url, s.now()); err != nil {
		return "", userError(err)
	}
	s.invalidate(ctx, userID)
	return url, nil
}

// ListProfiles returns every profile whose user still exists, oldest first.
func (s *UserService) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	profiles, err := s.users.ListProfiles(ctx)
	if err != nil {
		return nil, errs.Internalf(err, "failed to list profiles")
	}

	ids := make([]primitive.ObjectID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserId)
	}
	info, err := s.users.DisplayInfo(ctx, ids)
	if err != nil {
		return nil, errs.Internalf(err, "failed to list profiles")
	}

	out := make([]models.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		dto, ok := info[p.UserId]
		if !ok {
			continue
		}
		out = append(out, models.UserProfile{Profile: *p, User: dto})
	}
	return out, nil
}

// TopProfiles returns the profiles newest first.
func (s *UserService) TopProfiles(ctx context.Context) ([]models.UserProfile, error) {
	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(profiles, func(a, b models.UserProfile) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return profiles, nil
}

func (s *UserService) invalidate(ctx context.Context, userID primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate display info", zap.String("userId", userID.Hex()), zap.Error(err))
	}
}

func newProfile(userID primitive.ObjectID, now time.Time) *models.Profile {
	return &models.Profile{
		Id:        primitive.NewObjectID(),
		UserId:    userID,
		PastWork:  []models.Work{},
		Education: []models.Education{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func userError(err error) error {
	if errs.ErrorCode(err) == errs.ENOTFOUND {
		return errs.Wrap(errs.ENOTFOUND, err, "User not found")
	}
	return errs.Internalf(err, "failed to load user")
}
