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

// Dispatcher accepts notifications for background delivery without blocking.
type Dispatcher interface {
	Dispatch(n domain.Notification) bool
}

// InteractionService handles likes and comments and their notification side effects.
type InteractionService interface {
	ToggleLike(ctx context.Context, principal domain.Principal, postID string) (*domain.LikeResult, error)
	AddComment(ctx context.Context, principal domain.Principal, postID, content string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string, req domain.PageRequest) (*domain.CommentPage, error)
}

type interactionService struct {
	posts      repository.PostRepository
	comments   repository.CommentRepository
	dispatcher Dispatcher
}

func NewInteractionService(posts repository.PostRepository, comments repository.CommentRepository, dispatcher Dispatcher) InteractionService {
	return &interactionService{
		posts:      posts,
		comments:   comments,
		dispatcher: dispatcher,
	}
}

type commentInput struct {
	Content string `json:"content" validate:"required,max=300"`
}

var commentMessages = fieldMessages{
	"content.required": "Comment content is required",
	"content.max":      fmt.Sprintf("Comment must not exceed %d characters", domain.MaxCommentLength),
}

// ToggleLike flips the caller's membership in the liker set. The reported
// count is derived from the set as read before the mutation.
func (s *interactionService) ToggleLike(ctx context.Context, principal domain.Principal, postID string) (*domain.LikeResult, error) {
	post, err := loadPost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}

	prior := len(post.LikerIDs)
	if post.LikedBy(principal.UserID) {
		if err := s.posts.RemoveLiker(ctx, post.ID, principal.UserID); err != nil {
			return nil, mapPostErr(err)
		}
		return &domain.LikeResult{Liked: false, LikesCount: prior - 1}, nil
	}

	if err := s.posts.AddLiker(ctx, post.ID, principal.UserID); err != nil {
		return nil, mapPostErr(err)
	}
	s.notify(post, principal, domain.NotificationLike)
	return &domain.LikeResult{Liked: true, LikesCount: prior + 1}, nil
}

func (s *interactionService) AddComment(ctx context.Context, principal domain.Principal, postID, content string) (*domain.Comment, error) {
	in := commentInput{Content: strings.TrimSpace(content)}
	if err := validateInput(in, commentMessages); err != nil {
		return nil, err
	}

	post, err := loadPost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate comment id: %w", err)
	}
	comment := &domain.Comment{
		ID:       id.String(),
		PostID:   post.ID,
		AuthorID: principal.UserID,
		Author: domain.Author{
			ID:       principal.UserID,
			Username: principal.Username,
			Email:    principal.Email,
		},
		Content:   in.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, mapPostErr(err)
	}

	s.notify(post, principal, domain.NotificationComment)
	return comment, nil
}

func (s *interactionService) ListComments(ctx context.Context, postID string, req domain.PageRequest) (*domain.CommentPage, error) {
	post, err := loadPost(ctx, s.posts, postID)
	if err != nil {
		return nil, err
	}
	req = req.Normalize(domain.DefaultCommentsLimit)

	total, err := s.comments.CountByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, post.ID, req.Offset(), req.Limit)
	if err != nil {
		return nil, err
	}

	return &domain.CommentPage{
		Comments:   comments,
		Pagination: domain.NewPagination(req, total),
	}, nil
}

// notify hands a message to the dispatcher when the post author is someone
// else and has registered a push token. Delivery is never awaited.
func (s *interactionService) notify(post *domain.Post, actor domain.Principal, kind domain.NotificationKind) {
	if s.dispatcher == nil || post.AuthorID == actor.UserID || post.Author.PushToken == "" {
		return
	}
	s.dispatcher.Dispatch(domain.Notification{
		PushToken:     post.Author.PushToken,
		Kind:          kind,
		ActorUsername: actor.Username,
		PostID:        post.ID,
	})
}

func mapPostErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}
