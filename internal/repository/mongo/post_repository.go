package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

type postDocument struct {
	ID        string    `bson:"_id"`
	AuthorID  string    `bson:"author"`
	Content   string    `bson:"content"`
	Likes     []string  `bson:"likes"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d postDocument) toDomain(author domain.Author) domain.Post {
	likes := d.Likes
	if likes == nil {
		likes = []string{}
	}
	if author.ID == "" {
		author.ID = d.AuthorID
	}
	return domain.Post{
		ID:        d.ID,
		Content:   d.Content,
		AuthorID:  d.AuthorID,
		Author:    author,
		LikerIDs:  likes,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type PostRepository struct {
	coll  *mongo.Collection
	users *mongo.Collection
}

func NewPostRepository(db *mongo.Database) repository.PostRepository {
	return &PostRepository{
		coll:  db.Collection(postsCollection),
		users: db.Collection(usersCollection),
	}
}

func (r *PostRepository) Init(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: newestFirst(), Options: options.Index().SetName("created_desc")},
		{
			Keys:    bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("author_created_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.UpdatedAt = post.CreatedAt
	likes := post.LikerIDs
	if likes == nil {
		likes = []string{}
	}

	if _, err := r.coll.InsertOne(ctx, postDocument{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Content:   post.Content,
		Likes:     likes,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	var doc postDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find post: %w", err)
	}

	authors, err := authorsByID(ctx, r.users, []string{doc.AuthorID})
	if err != nil {
		return nil, err
	}
	post := doc.toDomain(authors[doc.AuthorID])
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context, q repository.PostQuery) ([]domain.Post, error) {
	opts := options.Find().
		SetSort(newestFirst()).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))

	cursor, err := r.coll.Find(ctx, postFilter(q.AuthorID), opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	authorIDs := make([]string, len(docs))
	for i, d := range docs {
		authorIDs[i] = d.AuthorID
	}
	authors, err := authorsByID(ctx, r.users, authorIDs)
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, len(docs))
	for i, d := range docs {
		posts[i] = d.toDomain(authors[d.AuthorID])
	}
	return posts, nil
}

func (r *PostRepository) Count(ctx context.Context, authorID string) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, postFilter(authorID))
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (r *PostRepository) AddLiker(ctx context.Context, postID, userID string) error {
	return r.updateLikes(ctx, postID, bson.M{
		"$addToSet": bson.M{"likes": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *PostRepository) RemoveLiker(ctx context.Context, postID, userID string) error {
	return r.updateLikes(ctx, postID, bson.M{
		"$pull": bson.M{"likes": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *PostRepository) updateLikes(ctx context.Context, postID string, update bson.M) error {
	res, err := r.coll.UpdateByID(ctx, postID, update)
	if err != nil {
		return fmt.Errorf("update likes: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	return nil
}

func postFilter(authorID string) bson.M {
	if authorID == "" {
		return bson.M{}
	}
	return bson.M{"author": authorID}
}
