package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

// ErrPostNotFound is returned for unknown or malformed post ids.
var ErrPostNotFound = domain.NewError(domain.ErrNotFound, "Post not found")

// PostService builds the feed: post creation, paginated listing and single-post reads.
type PostService interface {
	CreatePost(ctx context.Context, principal domain.Principal, content string) (*domain.EnrichedPost, error)
	ListPosts(ctx context.Context, viewerID string, req domain.PageRequest, username string) (*domain.PostPage, error)
	GetPost(ctx context.Context, viewerID, postID string) (*domain.EnrichedPost, error)
}

type postService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	users    repository.UserRepository
}

func NewPostService(posts repository.PostRepository, comments repository.CommentRepository, users repository.UserRepository) PostService {
	return &postService{
		posts:    posts,
		comments: comments,
		users:    users,
	}
}

type postInput struct {
	Content string `json:"content" validate:"required,max=500"`
}

var postMessages = fieldMessages{
	"content.required": "Post content is required",
	"content.max":      fmt.Sprintf("Post content must not exceed %d characters", domain.MaxPostLength),
}

func (s *postService) CreatePost(ctx context.Context, principal domain.Principal, content string) (*domain.EnrichedPost, error) {
	in := postInput{Content: strings.TrimSpace(content)}
	if err := validateInput(in, postMessages); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate post id: %w", err)
	}
	now := time.Now().UTC()
	post := &domain.Post{
		ID:       id.String(),
		Content:  in.Content,
		AuthorID: principal.UserID,
		Author: domain.Author{
			ID:       principal.UserID,
			Username: principal.Username,
			Email:    principal.Email,
		},
		LikerIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	enriched := domain.Enrich(*post, principal.UserID, 0)
	return &enriched, nil
}

func (s *postService) ListPosts(ctx context.Context, viewerID string, req domain.PageRequest, username string) (*domain.PostPage, error) {
	req = req.Normalize(domain.DefaultPostsLimit)

	var authorID string
	if username = strings.TrimSpace(username); username != "" {
		author, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.PostPage{
					Posts:      []domain.EnrichedPost{},
					Pagination: domain.Pagination{Page: req.Page, Limit: req.Limit},
				}, nil
			}
			return nil, err
		}
		authorID = author.ID
	}

	total, err := s.posts.Count(ctx, authorID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.List(ctx, repository.PostQuery{
		AuthorID: authorID,
		Offset:   req.Offset(),
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	counts, err := s.comments.CountByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}

	enriched := make([]domain.EnrichedPost, len(posts))
	for i := range posts {
		enriched[i] = domain.Enrich(posts[i], viewerID, counts[posts[i].ID])
	}

	return &domain.PostPage{
		Posts:      enriched,
		Pagination: domain.NewPagination(req, total),
	}, nil
}

func (s *postService) GetPost(ctx context.Context, viewerID, postID string) (*domain.EnrichedPost, error) {
	post, err := loadPost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	count, err := s.comments.CountByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	enriched := domain.Enrich(*post, viewerID, count)
	return &enriched, nil
}

// loadPost treats ids that cannot name a post the same as missing posts.
func loadPost(ctx context.Context, posts repository.PostRepository, postID string) (*domain.Post, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, ErrPostNotFound
	}
	post, err := posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}
