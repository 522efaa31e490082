package services

import (
	"context"
	"io"
	"time"

	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConnectionRepository stores connection edges. Implementations report
// missing rows as errs.ENOTFOUND and uniqueness violations as errs.ECONFLICT.
type ConnectionRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Connection, error)
	// FindOpen returns the pending or accepted edge of the ordered pair, or nil.
	FindOpen(ctx context.Context, requesterID, targetID primitive.ObjectID) (*models.Connection, error)
	Insert(ctx context.Context, edge *models.Connection) error
	// TransitionStatus moves an edge from one status to another only if it is
	// still in the expected status. A lost race yields errs.EINVALIDSTATE.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ConnectionStatus, at time.Time) error
	ListByRequester(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error)
	ListByTarget(ctx context.Context, userID primitive.ObjectID) ([]*models.Connection, error)
	// WithTransaction runs fn so that either all of its writes through tx are
	// kept or none are.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ConnectionRepository) error) error
}

// UserDirectory is the read-only view of the identity store.
type UserDirectory interface {
	ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error)
	// DisplayInfo returns the display info of the users that exist among ids.
	DisplayInfo(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserDto, error)
}

type UserRepository interface {
	UserDirectory
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	// CredentialsTaken reports whether another user than exclude already
	// uses username or email.
	CredentialsTaken(ctx context.Context, username, email string, exclude primitive.ObjectID) (bool, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate, at time.Time) (*models.User, error)
	SetPicture(ctx context.Context, id primitive.ObjectID, field models.PictureField, url string, at time.Time) error
	// EnsureProfile stores profile unless its user already has one and
	// returns the stored profile.
	EnsureProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, update models.ProfileUpdate, at time.Time) (*models.Profile, error)
	// ListProfiles returns every profile, oldest first.
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	FindPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	// ListPosts returns active posts, newest first.
	ListPosts(ctx context.Context) ([]*models.Post, error)
	// DeletePost removes a post owned by userID together with its comments.
	DeletePost(ctx context.Context, id, userID primitive.ObjectID) error
	IncrementLikes(ctx context.Context, id primitive.ObjectID) (int64, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	// ListComments returns the comments of a post, newest first.
	ListComments(ctx context.Context, postID primitive.ObjectID) ([]*models.Comment, error)
	DeleteComment(ctx context.Context, id, userID primitive.ObjectID) error
}

type ConnectionEventPublisher interface {
	PublishConnectionEvent(ctx context.Context, event models.ConnectionEvent) error
}

// DisplayInfoInvalidator drops cached display info after a user changes.
type DisplayInfoInvalidator interface {
	Invalidate(ctx context.Context, ids ...primitive.ObjectID) error
}

type TokenGenerator interface {
	Generate(userID primitive.ObjectID) (string, error)
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// MediaStore persists uploaded files and returns the URL they are served at.
type MediaStore interface {
	Save(ctx context.Context, folder string, upload Upload) (string, error)
}
