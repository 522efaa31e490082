package mongodb

import (
	"context"
	"time"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/lib"
	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	users    *mongo.Collection
	profiles *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:    db.Collection(lib.UsersCollection),
		profiles: db.Collection(lib.ProfilesCollection),
	}
}

func (r *UserRepository) ExistsByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, readError(err, "user")
	}
	return n > 0, nil
}

func (r *UserRepository) DisplayInfo(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserDto, error) {
	out := make(map[primitive.ObjectID]models.UserDto, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	unique := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "username": 1, "profilePicture": 1})
	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": unique}}, opts)
	if err != nil {
		return nil, readError(err, "users")
	}
	defer cursor.Close(ctx)

	var dtos []models.UserDto
	if err := cursor.All(ctx, &dtos); err != nil {
		return nil, readError(err, "users")
	}
	for _, dto := range dtos {
		out[dto.ID] = dto
	}
	return out, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Id.IsZero() {
		user.Id = primitive.NewObjectID()
	}
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return writeError(err, "user")
	}
	return nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, bson.M{"username": username})
}

func (r *UserRepository) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, readError(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) CredentialsTaken(ctx context.Context, username, email string, exclude primitive.ObjectID) (bool, error) {
	var or bson.A
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return false, nil
	}

	filter := bson.M{"$or": or}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	n, err := r.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, readError(err, "users")
	}
	return n > 0, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate, at time.Time) (*models.User, error) {
	set := bson.M{"updatedAt": at}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}

	var user models.User
	err := r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, writeError(err, "user")
		}
		return nil, readError(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) SetPicture(ctx context.Context, id primitive.ObjectID, field models.PictureField, url string, at time.Time) error {
	if field != models.PictureProfile && field != models.PictureCover {
		return errs.Errorf(errs.EINVALID, "unknown picture field %q", field)
	}
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{string(field): url, "updatedAt": at}},
	)
	if err != nil {
		return writeError(err, "user")
	}
	if res.MatchedCount == 0 {
		return errs.Errorf(errs.ENOTFOUND, "user not found")
	}
	return nil
}

func (r *UserRepository) EnsureProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if profile.Id.IsZero() {
		profile.Id = primitive.NewObjectID()
	}
	onInsert := bson.M{
		"_id":         profile.Id,
		"bio":         profile.Bio,
		"location":    profile.Location,
		"currentPost": profile.CurrentPost,
		"pastWork":    nonNilWork(profile.PastWork),
		"education":   nonNilEducation(profile.Education),
		"createdAt":   profile.CreatedAt,
		"updatedAt":   profile.UpdatedAt,
	}

	var stored models.Profile
	err := r.profiles.FindOneAndUpdate(ctx,
		bson.M{"userId": profile.UserId},
		bson.M{"$setOnInsert": onInsert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race on the unique userId index; the winner's
		// profile is there now.
		err = r.profiles.FindOne(ctx, bson.M{"userId": profile.UserId}).Decode(&stored)
	}
	if err != nil {
		return nil, readError(err, "profile")
	}
	return &stored, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update models.ProfileUpdate, at time.Time) (*models.Profile, error) {
	set := bson.M{"updatedAt": at}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.Location != nil {
		set["location"] = *update.Location
	}
	if update.CurrentPost != nil {
		set["currentPost"] = *update.CurrentPost
	}
	if update.PastWork != nil {
		set["pastWork"] = nonNilWork(*update.PastWork)
	}
	if update.Education != nil {
		set["education"] = nonNilEducation(*update.Education)
	}

	var profile models.Profile
	err := r.profiles.FindOneAndUpdate(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&profile)
	if err != nil {
		return nil, readError(err, "profile")
	}
	return &profile, nil
}

func (r *UserRepository) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.profiles.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, readError(err, "profiles")
	}
	defer cursor.Close(ctx)

	profiles := make([]*models.Profile, 0)
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, readError(err, "profiles")
	}
	return profiles, nil
}

// Empty arrays instead of null keep the documents in the shape clients expect.
func nonNilWork(w []models.Work) []models.Work {
	if w == nil {
		return []models.Work{}
	}
	return w
}

func nonNilEducation(e []models.Education) []models.Education {
	if e == nil {
		return []models.Education{}
	}
	return e
}

