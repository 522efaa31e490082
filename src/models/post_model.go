package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	Id        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserId    primitive.ObjectID `json:"userId" bson:"userId"`
	Body      string             `json:"body" bson:"body"`
	Likes     int64              `json:"likes" bson:"likes"`
	Media     string             `json:"media" bson:"media"`
	FileType  string             `json:"fileType" bson:"fileType"`
	Active    bool               `json:"active" bson:"active"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type PostDto struct {
	Post
	Author *UserDto `json:"author"`
}

type Comment struct {
	Id        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PostId    primitive.ObjectID `json:"postId" bson:"postId"`
	UserId    primitive.ObjectID `json:"userId" bson:"userId"`
	Body      string             `json:"body" bson:"body"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type CommentDto struct {
	Comment
	Author *UserDto `json:"author"`
}
