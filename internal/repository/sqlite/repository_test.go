package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(context.Background(), db))
	return db
}

func seedUser(t *testing.T, users repository.UserRepository, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func seedPost(t *testing.T, posts repository.PostRepository, authorID, content string, at time.Time) *domain.Post {
	t.Helper()
	p := &domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: at,
	}
	require.NoError(t, posts.Create(context.Background(), p))
	return p
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)

	alice := seedUser(t, users, "alice")

	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = users.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = users.Create(ctx, &domain.User{ID: uuid.NewString(), Username: "other", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = users.Create(ctx, &domain.User{ID: uuid.NewString(), Username: "Alice", Email: "new@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrDuplicateUsername)

	require.NoError(t, users.UpdatePushToken(ctx, alice.ID, "ExponentPushToken[abc]"))
	got, err = users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[abc]", got.PushToken)

	assert.ErrorIs(t, users.UpdatePushToken(ctx, uuid.NewString(), "x"), domain.ErrNotFound)
}

func TestPostRepository_ListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)

	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var created []*domain.Post
	for i := 0; i < 5; i++ {
		author := alice
		if i%2 == 1 {
			author = bob
		}
		created = append(created, seedPost(t, posts, author.ID, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	page, err := posts.List(ctx, repository.PostQuery{Offset: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, created[4].ID, page[0].ID)
	assert.Equal(t, created[3].ID, page[1].ID)
	assert.Equal(t, "alice", page[0].Author.Username)
	assert.Equal(t, "bob", page[1].Author.Username)
	assert.Empty(t, page[0].LikerIDs)

	page, err = posts.List(ctx, repository.PostQuery{Offset: 4, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, created[0].ID, page[0].ID)

	page, err = posts.List(ctx, repository.PostQuery{AuthorID: bob.ID, Offset: 0, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	for _, p := range page {
		assert.Equal(t, bob.ID, p.AuthorID)
	}

	total, err := posts.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	total, err = posts.Count(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestPostRepository_EqualTimestampsTieBreakByID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)

	alice := seedUser(t, users, "alice")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{
		"00000000-0000-7000-8000-000000000001",
		"00000000-0000-7000-8000-000000000003",
		"00000000-0000-7000-8000-000000000002",
	}
	for _, id := range ids {
		require.NoError(t, posts.Create(ctx, &domain.Post{ID: id, AuthorID: alice.ID, Content: id, CreatedAt: at}))
	}

	for i := 0; i < 3; i++ {
		page, err := posts.List(ctx, repository.PostQuery{Offset: 0, Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, ids[1], page[0].ID)
		assert.Equal(t, ids[2], page[1].ID)
		assert.Equal(t, ids[0], page[2].ID)
	}
}

func TestPostRepository_LikerSet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)

	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	post := seedPost(t, posts, alice.ID, "hello", time.Now().Add(-time.Hour))

	require.NoError(t, posts.AddLiker(ctx, post.ID, bob.ID))
	require.NoError(t, posts.AddLiker(ctx, post.ID, bob.ID))
	require.NoError(t, posts.AddLiker(ctx, post.ID, alice.ID))

	got, err := posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, got.LikerIDs)
	assert.True(t, got.UpdatedAt.After(post.CreatedAt))
	assert.Equal(t, alice.ID, got.Author.ID)

	require.NoError(t, posts.RemoveLiker(ctx, post.ID, bob.ID))
	require.NoError(t, posts.RemoveLiker(ctx, post.ID, bob.ID))

	got, err = posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, got.LikerIDs)

	assert.ErrorIs(t, posts.AddLiker(ctx, uuid.NewString(), bob.ID), domain.ErrNotFound)

	_, err = posts.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommentRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)

	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	first := seedPost(t, posts, alice.ID, "first", time.Now())
	second := seedPost(t, posts, alice.ID, "second", time.Now())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var created []domain.Comment
	for i := 0; i < 3; i++ {
		c := domain.Comment{
			ID:        uuid.NewString(),
			PostID:    first.ID,
			AuthorID:  bob.ID,
			Content:   fmt.Sprintf("comment %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, comments.Create(ctx, &c))
		created = append(created, c)
	}

	list, err := comments.ListByPost(ctx, first.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created[2].ID, list[0].ID)
	assert.Equal(t, created[1].ID, list[1].ID)
	assert.Equal(t, "bob", list[0].Author.Username)

	n, err := comments.CountByPost(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	counts, err := comments.CountByPosts(ctx, []string{first.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[first.ID])
	assert.Equal(t, int64(0), counts[second.ID])

	err = comments.Create(ctx, &domain.Comment{ID: uuid.NewString(), PostID: uuid.NewString(), AuthorID: bob.ID, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
