package services

import (
	"context"
	"strings"
	"time"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const postMediaFolder = "posts"

type PostService struct {
	posts     PostRepository
	directory UserDirectory
	media     MediaStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewPostService(posts PostRepository, directory UserDirectory, media MediaStore, logger *zap.Logger) *PostService {
	return &PostService{
		posts:     posts,
		directory: directory,
		media:     media,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreatePost stores a post by userID; media is optional.
func (s *PostService) CreatePost(ctx context.Context, userID primitive.ObjectID, body string, media *Upload) (*models.PostDto, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.Errorf(errs.EINVALID, "Post body is required")
	}
	exists, err := s.directory.ExistsByID(ctx, userID)
	if err != nil {
		return nil, errs.Internalf(err, "Error creating post")
	}
	if !exists {
		return nil, errs.Errorf(errs.ENOTFOUND, "User not found")
	}

	now := s.now()
	post := &models.Post{
		Id:        primitive.NewObjectID(),
		UserId:    userID,
		Body:      body,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if media != nil {
		url, err := s.media.Save(ctx, postMediaFolder, *media)
		if err != nil {
			return nil, errs.Internalf(err, "Error creating post")
		}
		post.Media = url
		post.FileType, _, _ = strings.Cut(media.ContentType, "/")
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, errs.Internalf(err, "Error creating post")
	}

	s.logger.Info("Post created", zap.String("postId", post.Id.Hex()), zap.String("userId", userID.Hex()))
	dtos, err := s.withAuthors(ctx, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

func (s *PostService) ListPosts(ctx context.Context) ([]models.PostDto, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, errs.Internalf(err, "Error fetching posts")
	}
	return s.withAuthors(ctx, posts)
}

// DeletePost removes a post owned by userID. Posts of other users are
// reported as missing.
func (s *PostService) DeletePost(ctx context.Context, userID, postID primitive.ObjectID) error {
	if err := s.posts.DeletePost(ctx, postID, userID); err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return errs.Wrap(errs.ENOTFOUND, err, "Post not found or unauthorized")
		}
		return errs.Internalf(err, "Error deleting post")
	}
	return nil
}

// LikePost increments the like counter and returns the new value.
func (s *PostService) LikePost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	likes, err := s.posts.IncrementLikes(ctx, postID)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return 0, errs.Wrap(errs.ENOTFOUND, err, "Post not found")
		}
		return 0, errs.Internalf(err, "Error liking post")
	}
	return likes, nil
}

func (s *PostService) AddComment(ctx context.Context, userID, postID primitive.ObjectID, body string) (*models.CommentDto, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.Errorf(errs.EINVALID, "Comment body is required")
	}
	if _, err := s.posts.FindPost(ctx, postID); err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Wrap(errs.ENOTFOUND, err, "Post not found")
		}
		return nil, errs.Internalf(err, "Error adding comment")
	}

	comment := &models.Comment{
		Id:        primitive.NewObjectID(),
		PostId:    postID,
		UserId:    userID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.posts.CreateComment(ctx, comment); err != nil {
		return nil, errs.Internalf(err, "Error adding comment")
	}

	dtos, err := s.commentsWithAuthors(ctx, []*models.Comment{comment})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

func (s *PostService) ListComments(ctx context.Context, postID primitive.ObjectID) ([]models.CommentDto, error) {
	comments, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, errs.Internalf(err, "Error fetching comments")
	}
	return s.commentsWithAuthors(ctx, comments)
}

func (s *PostService) DeleteComment(ctx context.Context, userID, commentID primitive.ObjectID) error {
	if err := s.posts.DeleteComment(ctx, commentID, userID); err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return errs.Wrap(errs.ENOTFOUND, err, "Comment not found or you don't have permission to delete this")
		}
		return errs.Internalf(err, "Error deleting comment")
	}
	return nil
}

func (s *PostService) withAuthors(ctx context.Context, posts []*models.Post) ([]models.PostDto, error) {
	ids := make([]primitive.ObjectID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.UserId)
	}
	info, err := s.directory.DisplayInfo(ctx, ids)
	if err != nil {
		return nil, errs.Internalf(err, "failed to load authors")
	}

	out := make([]models.PostDto, 0, len(posts))
	for _, p := range posts {
		dto := models.PostDto{Post: *p}
		if author, ok := info[p.UserId]; ok {
			dto.Author = &author
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *PostService) commentsWithAuthors(ctx context.Context, comments []*models.Comment) ([]models.CommentDto, error) {
	ids := make([]primitive.ObjectID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.UserId)
	}
	info, err := s.directory.DisplayInfo(ctx, ids)
	if err != nil {
		return nil, errs.Internalf(err, "failed to load authors")
	}

	out := make([]models.CommentDto, 0, len(comments))
	for _, c := range comments {
		dto := models.CommentDto{Comment: *c}
		if author, ok := info[c.UserId]; ok {
			dto.Author = &author
		}
		out = append(out, dto)
	}
	return out, nil
}
