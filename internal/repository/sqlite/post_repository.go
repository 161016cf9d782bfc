package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

const (
	createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY(author_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts(author_id, created_at DESC, id DESC);
`
	createPostLikesTable = `
CREATE TABLE IF NOT EXISTS post_likes (
	post_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY(post_id, user_id),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);
`
	selectPostColumns = `
SELECT p.id, p.author_id, p.content, p.created_at, p.updated_at, u.username, u.email, u.push_token
FROM posts p
JOIN users u ON u.id = p.author_id
`
)

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createPostLikesTable); err != nil {
		return fmt.Errorf("create post_likes table: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.CreatedAt

	if _, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, author_id, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		post.ID,
		post.AuthorID,
		post.Content,
		toUnix(post.CreatedAt),
		toUnix(post.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPostColumns+`WHERE p.id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		return nil, err
	}

	likers, err := r.likersFor(ctx, []string{post.ID})
	if err != nil {
		return nil, err
	}
	if ids, ok := likers[post.ID]; ok {
		post.LikerIDs = ids
	}
	return post, nil
}

func (r *PostRepository) List(ctx context.Context, q repository.PostQuery) ([]domain.Post, error) {
	query := selectPostColumns
	args := make([]any, 0, 3)
	if q.AuthorID != "" {
		query += `WHERE p.author_id = ?
`
		args = append(args, q.AuthorID)
	}
	query += `ORDER BY p.created_at DESC, p.id DESC
LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	posts, err := r.queryPosts(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	likers, err := r.likersFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if ids, ok := likers[posts[i].ID]; ok {
			posts[i].LikerIDs = ids
		}
	}
	return posts, nil
}

func (r *PostRepository) Count(ctx context.Context, authorID string) (int64, error) {
	var (
		total int64
		err   error
	)
	if authorID == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = ?`, authorID).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (r *PostRepository) AddLiker(ctx context.Context, postID, userID string) error {
	return r.mutateLikers(ctx, postID, `INSERT OR IGNORE INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)`,
		postID, userID, toUnix(time.Now()))
}

func (r *PostRepository) RemoveLiker(ctx context.Context, postID, userID string) error {
	return r.mutateLikers(ctx, postID, `DELETE FROM post_likes WHERE post_id=? AND user_id=?`, postID, userID)
}

// mutateLikers applies a single set statement and bumps updated_at when membership changed.
func (r *PostRepository) mutateLikers(ctx context.Context, postID, stmt string, args ...any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id=?`, postID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		return fmt.Errorf("lookup post: %w", err)
	}

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update likes: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("likes rows affected: %w", err)
	}
	if aff > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET updated_at=? WHERE id=?`, toUnix(time.Now()), postID); err != nil {
			return fmt.Errorf("touch post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit likes: %w", err)
	}
	return nil
}

func (r *PostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *PostRepository) likersFor(ctx context.Context, postIDs []string) (map[string][]string, error) {
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT post_id, user_id
FROM post_likes
WHERE post_id IN (`+placeholders(len(postIDs))+`)
ORDER BY created_at ASC, user_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	likers := make(map[string][]string, len(postIDs))
	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		likers[postID] = append(likers[postID], userID)
	}
	return likers, rows.Err()
}

func scanPost(scanner interface {
	Scan(dest ...any) error
}) (*domain.Post, error) {
	var (
		post      domain.Post
		createdAt int64
		updatedAt int64
	)
	if err := scanner.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Content,
		&createdAt,
		&updatedAt,
		&post.Author.Username,
		&post.Author.Email,
		&post.Author.PushToken,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.Author.ID = post.AuthorID
	post.CreatedAt = fromUnix(createdAt)
	post.UpdatedAt = fromUnix(updatedAt)
	post.LikerIDs = []string{}
	return &post, nil
}
