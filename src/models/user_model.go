package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultPicture = "default.jpg"

type User struct {
	Id             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Username       string             `json:"username" bson:"username"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"-" bson:"password"`
	ProfilePicture string             `json:"profilePicture" bson:"profilePicture"`
	CoverPicture   string             `json:"coverPicture" bson:"coverPicture"`
	IsActive       bool               `json:"isActive" bson:"isActive"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserDto is the public display info of a user, embedded wherever another
// user is shown (connection lists, post authors, comments).
type UserDto struct {
	ID             primitive.ObjectID `bson:"_id" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Username       string             `bson:"username" json:"username"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
}

func (u *User) Dto() UserDto {
	return UserDto{
		ID:             u.Id,
		Name:           u.Name,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

type Profile struct {
	Id          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserId      primitive.ObjectID `json:"userId" bson:"userId"`
	Bio         string             `json:"bio" bson:"bio"`
	Location    string             `json:"location" bson:"location"`
	CurrentPost string             `json:"currentPost" bson:"currentPost"`
	PastWork    []Work             `json:"pastWork" bson:"pastWork"`
	Education   []Education        `json:"education" bson:"education"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Work struct {
	Company  string `json:"company" bson:"company"`
	Position string `json:"position" bson:"position"`
	Year     string `json:"year" bson:"year"`
}

type Education struct {
	School       string `json:"school" bson:"school"`
	Degree       string `json:"degree" bson:"degree"`
	FieldOfStudy string `json:"fieldOfStudy" bson:"fieldOfStudy"`
	Year         string `json:"year" bson:"year"`
}

// UserProfile is a profile joined with its owner's display info.
type UserProfile struct {
	Profile
	User UserDto `json:"user"`
}

// ProfileUpdate holds optional profile fields; nil means "leave unchanged".
type ProfileUpdate struct {
	Bio         *string      `json:"bio"`
	Location    *string      `json:"location"`
	CurrentPost *string      `json:"currentPost"`
	PastWork    *[]Work      `json:"pastWork"`
	Education   *[]Education `json:"education"`
}

type UserUpdate struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// PictureField names the user document field an uploaded picture is stored in.
type PictureField string

const (
	PictureProfile PictureField = "profilePicture"
	PictureCover   PictureField = "coverPicture"
)
