package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

const createCommentsTable = `
CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY(author_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments(post_id, created_at DESC, id DESC);
`

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCommentsTable); err != nil {
		return fmt.Errorf("create comments table: %w", err)
	}
	return nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
INSERT INTO comments (id, post_id, author_id, content, created_at)
VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.AuthorID,
		comment.Content,
		toUnix(comment.CreatedAt),
	); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return fmt.Errorf("post %s: %w", comment.PostID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID string, offset, limit int) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.post_id, c.author_id, c.content, c.created_at, u.username, u.email
FROM comments c
JOIN users u ON u.id = c.author_id
WHERE c.post_id = ?
ORDER BY c.created_at DESC, c.id DESC
LIMIT ? OFFSET ?`, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		var (
			comment   domain.Comment
			createdAt int64
		)
		if err := rows.Scan(
			&comment.ID,
			&comment.PostID,
			&comment.AuthorID,
			&comment.Content,
			&createdAt,
			&comment.Author.Username,
			&comment.Author.Email,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comment.Author.ID = comment.AuthorID
		comment.CreatedAt = fromUnix(createdAt)
		comments = append(comments, comment)
	}

	return comments, rows.Err()
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return total, nil
}

func (r *CommentRepository) CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT post_id, COUNT(*)
FROM comments
WHERE post_id IN (`+placeholders(len(postIDs))+`)
GROUP BY post_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("count comments by post: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID string
			n      int64
		)
		if err := rows.Scan(&postID, &n); err != nil {
			return nil, fmt.Errorf("scan comment count: %w", err)
		}
		counts[postID] = n
	}
	return counts, rows.Err()
}
