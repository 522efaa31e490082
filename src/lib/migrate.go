package lib

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	UsersCollection       = "users"
	ProfilesCollection    = "profiles"
	ConnectionsCollection = "connections"
	PostsCollection       = "posts"
	CommentsCollection    = "comments"
)

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("users_username").SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("users_email").SetUnique(true)},
		},
		ProfilesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("profiles_user").SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("profiles_created")},
		},
		ConnectionsCollection: {
			{
				Keys:    bson.D{{Key: "requesterId", Value: 1}, {Key: "targetId", Value: 1}, {Key: "requestedAt", Value: -1}},
				Options: options.Index().SetName("connections_requester_target"),
			},
			{
				Keys:    bson.D{{Key: "targetId", Value: 1}, {Key: "requestedAt", Value: -1}},
				Options: options.Index().SetName("connections_target"),
			},
			// At most one open (pending or accepted) edge per ordered pair.
			// $in inside a partial filter needs MongoDB 6.0 or newer.
			{
				Keys: bson.D{{Key: "requesterId", Value: 1}, {Key: "targetId", Value: 1}},
				Options: options.Index().
					SetName("connections_open_pair").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": bson.M{"$in": bson.A{"pending", "accepted"}}}),
			},
		},
		PostsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("posts_created")},
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("posts_user")},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("comments_post")},
		},
	}
}

// EnsureIndexes creates every index the repositories rely on. Creating an
// index that already exists with the same definition is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	for collection, models := range indexModels() {
		names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
		logger.Info("Indexes ensured", zap.String("collection", collection), zap.Strings("indexes", names))
	}
	return nil
}
