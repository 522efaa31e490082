package mongodb

import (
	"context"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/lib"
	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var createdNewestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

type PostRepository struct {
	posts    *mongo.Collection
	comments *mongo.Collection
	logger   *zap.Logger
}

func NewPostRepository(db *mongo.Database, logger *zap.Logger) *PostRepository {
	return &PostRepository{
		posts:    db.Collection(lib.PostsCollection),
		comments: db.Collection(lib.CommentsCollection),
		logger:   logger,
	}
}

func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.Id.IsZero() {
		post.Id = primitive.NewObjectID()
	}
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return writeError(err, "post")
	}
	return nil
}

func (r *PostRepository) FindPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	if err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, readError(err, "post")
	}
	return &post, nil
}

func (r *PostRepository) ListPosts(ctx context.Context) ([]*models.Post, error) {
	cursor, err := r.posts.Find(ctx, bson.M{"active": true}, options.Find().SetSort(createdNewestFirst))
	if err != nil {
		return nil, readError(err, "posts")
	}
	defer cursor.Close(ctx)

	posts := make([]*models.Post, 0)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, readError(err, "posts")
	}
	return posts, nil
}

func (r *PostRepository) DeletePost(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.posts.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return writeError(err, "post")
	}
	if res.DeletedCount == 0 {
		return errs.Errorf(errs.ENOTFOUND, "post not found")
	}

	// Orphaned comments are harmless, so a failure here does not undo the delete.
	if _, err := r.comments.DeleteMany(ctx, bson.M{"postId": id}); err != nil {
		r.logger.Warn("Failed to delete comments of post", zap.String("postId", id.Hex()), zap.Error(err))
	}
	return nil
}

func (r *PostRepository) IncrementLikes(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var post models.Post
	err := r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"likes": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		return 0, readError(err, "post")
	}
	return post.Likes, nil
}

func (r *PostRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.Id.IsZero() {
		comment.Id = primitive.NewObjectID()
	}
	if _, err := r.comments.InsertOne(ctx, comment); err != nil {
		return writeError(err, "comment")
	}
	return nil
}

func (r *PostRepository) ListComments(ctx context.Context, postID primitive.ObjectID) ([]*models.Comment, error) {
	cursor, err := r.comments.Find(ctx, bson.M{"postId": postID}, options.Find().SetSort(createdNewestFirst))
	if err != nil {
		return nil, readError(err, "comments")
	}
	defer cursor.Close(ctx)

	comments := make([]*models.Comment, 0)
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, readError(err, "comments")
	}
	return comments, nil
}

func (r *PostRepository) DeleteComment(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.comments.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return writeError(err, "comment")
	}
	if res.DeletedCount == 0 {
		return errs.Errorf(errs.ENOTFOUND, "comment not found")
	}
	return nil
}
