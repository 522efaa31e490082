package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]models.User
	profiles map[primitive.ObjectID]models.Profile // keyed by user id
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:    make(map[primitive.ObjectID]models.User),
		profiles: make(map[primitive.ObjectID]models.Profile),
	}
}

func (r *UserRepository) ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r *UserRepository) DisplayInfo(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserDto, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[primitive.ObjectID]models.UserDto, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u.Dto()
		}
	}
	return out, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	if r.taken(user.Username, user.Email, user.Id) {
		return errs.Errorf(errs.ECONFLICT, "duplicate username or email")
	}
	r.users[user.Id] = *user
	return nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errs.Errorf(errs.ENOTFOUND, "user not found")
	}
	return &u, nil
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(func(u models.User) bool { return u.Email == email })
}

func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findBy(func(u models.User) bool { return u.Username == username })
}

func (r *UserRepository) CredentialsTaken(ctx context.Context, username, email string, exclude primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.taken(username, email, exclude), nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate, at time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errs.Errorf(errs.ENOTFOUND, "user not found")
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if r.taken(u.Username, u.Email, id) {
		return nil, errs.Errorf(errs.ECONFLICT, "duplicate username or email")
	}
	u.UpdatedAt = at
	r.users[id] = u
	return &u, nil
}

func (r *UserRepository) SetPicture(ctx context.Context, id primitive.ObjectID, field models.PictureField, url string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return errs.Errorf(errs.ENOTFOUND, "user not found")
	}
	switch field {
	case models.PictureProfile:
		u.ProfilePicture = url
	case models.PictureCover:
		u.CoverPicture = url
	default:
		return errs.Errorf(errs.EINVALID, "unknown picture field %q", field)
	}
	u.UpdatedAt = at
	r.users[id] = u
	return nil
}

func (r *UserRepository) EnsureProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.profiles[profile.UserId]; ok {
		return &existing, nil
	}
	stored := *profile
	if stored.Id.IsZero() {
		stored.Id = primitive.NewObjectID()
	}
	r.profiles[stored.UserId] = stored
	return &stored, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update models.ProfileUpdate, at time.Time) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, errs.Errorf(errs.ENOTFOUND, "profile not found")
	}
	if update.Bio != nil {
		p.Bio = *update.Bio
	}
	if update.Location != nil {
		p.Location = *update.Location
	}
	if update.CurrentPost != nil {
		p.CurrentPost = *update.CurrentPost
	}
	if update.PastWork != nil {
		p.PastWork = slices.Clone(*update.PastWork)
	}
	if update.Education != nil {
		p.Education = slices.Clone(*update.Education)
	}
	p.UpdatedAt = at
	r.profiles[userID] = p
	return &p, nil
}

func (r *UserRepository) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profile := p
		out = append(out, &profile)
	}
	slices.SortFunc(out, func(a, b *models.Profile) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.Id[:], b.Id[:])
	})
	return out, nil
}

func (r *UserRepository) findBy(match func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, errs.Errorf(errs.ENOTFOUND, "user not found")
}

func (r *UserRepository) taken(username, email string, exclude primitive.ObjectID) bool {
	for id, u := range r.users {
		if id == exclude {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}
