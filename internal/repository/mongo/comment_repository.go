package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

type commentDocument struct {
	ID        string    `bson:"_id"`
	PostID    string    `bson:"post"`
	AuthorID  string    `bson:"author"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

type CommentRepository struct {
	coll  *mongo.Collection
	users *mongo.Collection
}

func NewCommentRepository(db *mongo.Database) repository.CommentRepository {
	return &CommentRepository{
		coll:  db.Collection(commentsCollection),
		users: db.Collection(usersCollection),
	}
}

func (r *CommentRepository) Init(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("post_created_desc"),
	})
	if err != nil {
		return fmt.Errorf("create comment indexes: %w", err)
	}
	return nil
}

// Create does not check the parent post; the service verifies it first.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, commentDocument{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID string, offset, limit int) ([]domain.Comment, error) {
	opts := options.Find().
		SetSort(newestFirst()).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"post": postID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	var docs []commentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}

	authorIDs := make([]string, len(docs))
	for i, d := range docs {
		authorIDs[i] = d.AuthorID
	}
	authors, err := authorsByID(ctx, r.users, authorIDs)
	if err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, len(docs))
	for i, d := range docs {
		author := authors[d.AuthorID]
		author.ID = d.AuthorID
		author.PushToken = ""
		comments[i] = domain.Comment{
			ID:        d.ID,
			PostID:    d.PostID,
			AuthorID:  d.AuthorID,
			Author:    author,
			Content:   d.Content,
			CreatedAt: d.CreatedAt.UTC(),
		}
	}
	return comments, nil
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{"post": postID})
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return total, nil
}

func (r *CommentRepository) CountByPosts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	cursor, err := r.coll.Aggregate(ctx, countByPostPipeline(postIDs))
	if err != nil {
		return nil, fmt.Errorf("aggregate comment counts: %w", err)
	}
	var rows []struct {
		PostID string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode comment counts: %w", err)
	}
	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}

func countByPostPipeline(postIDs []string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "post", Value: bson.D{{Key: "$in", Value: postIDs}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$post"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}
