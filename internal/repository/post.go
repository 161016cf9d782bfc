package repository

import (
	"context"

	"postboard/internal/domain"
)

// PostQuery selects a window of the feed ordered newest first.
type PostQuery struct {
	AuthorID string
	Offset   int
	Limit    int
}

// PostRepository exposes persistence operations for Post aggregates.
// Returned posts carry their liker set and author projection.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, id string) (*domain.Post, error)
	// List orders by created time descending, ties broken by id descending.
	List(ctx context.Context, q PostQuery) ([]domain.Post, error)
	Count(ctx context.Context, authorID string) (int64, error)
	// AddLiker and RemoveLiker are atomic set operations on the liker set;
	// adding an existing member or removing an absent one is a no-op.
	AddLiker(ctx context.Context, postID, userID string) error
	RemoveLiker(ctx context.Context, postID, userID string) error
}

// CommentRepository manages comments attached to posts.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) error
	// ListByPost orders by created time descending, ties broken by id descending.
	ListByPost(ctx context.Context, postID string, offset, limit int) ([]domain.Comment, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	// CountByPosts returns comment totals keyed by post id; posts without comments may be absent.
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error)
}
