package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostRepository struct {
	mu       sync.RWMutex
	posts    map[primitive.ObjectID]models.Post
	comments map[primitive.ObjectID]models.Comment
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:    make(map[primitive.ObjectID]models.Post),
		comments: make(map[primitive.ObjectID]models.Comment),
	}
}

func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.Id.IsZero() {
		post.Id = primitive.NewObjectID()
	}
	r.posts[post.Id] = *post
	return nil
}

func (r *PostRepository) FindPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, errs.Errorf(errs.ENOTFOUND, "post not found")
	}
	return &p, nil
}

func (r *PostRepository) ListPosts(ctx context.Context) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if p.Active {
			post := p
			out = append(out, &post)
		}
	}
	slices.SortFunc(out, func(a, b *models.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.Id[:], a.Id[:])
	})
	return out, nil
}

func (r *PostRepository) DeletePost(ctx context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.UserId != userID {
		return errs.Errorf(errs.ENOTFOUND, "post not found")
	}
	delete(r.posts, id)
	for cid, c := range r.comments {
		if c.PostId == id {
			delete(r.comments, cid)
		}
	}
	return nil
}

func (r *PostRepository) IncrementLikes(ctx context.Context, id primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return 0, errs.Errorf(errs.ENOTFOUND, "post not found")
	}
	p.Likes++
	r.posts[id] = p
	return p.Likes, nil
}

func (r *PostRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if comment.Id.IsZero() {
		comment.Id = primitive.NewObjectID()
	}
	r.comments[comment.Id] = *comment
	return nil
}

func (r *PostRepository) ListComments(ctx context.Context, postID primitive.ObjectID) ([]*models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Comment, 0)
	for _, c := range r.comments {
		if c.PostId == postID {
			comment := c
			out = append(out, &comment)
		}
	}
	slices.SortFunc(out, func(a, b *models.Comment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.Id[:], a.Id[:])
	})
	return out, nil
}

func (r *PostRepository) DeleteComment(ctx context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok || c.UserId != userID {
		return errs.Errorf(errs.ENOTFOUND, "comment not found")
	}
	delete(r.comments, id)
	return nil
}
