package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"
)

// usernameCollation makes username equality and uniqueness ignore case.
var usernameCollation = &options.Collation{Locale: "en", Strength: 2}

// Connect dials the server and verifies it answers a ping within timeout.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// InitSchema creates the indexes every repository relies on.
func InitSchema(ctx context.Context, db *mongo.Database) error {
	inits := []interface {
		Init(ctx context.Context) error
	}{
		&UserRepository{coll: db.Collection(usersCollection)},
		&PostRepository{coll: db.Collection(postsCollection), users: db.Collection(usersCollection)},
		&CommentRepository{coll: db.Collection(commentsCollection), users: db.Collection(usersCollection)},
	}
	for _, r := range inits {
		if err := r.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

func newestFirst() bson.D {
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
}
