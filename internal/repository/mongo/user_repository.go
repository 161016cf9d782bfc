package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postboard/internal/domain"
	"postboard/internal/repository"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	PushToken    string    `bson:"pushToken,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		PushToken:    d.PushToken,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func (d userDocument) toAuthor() domain.Author {
	return domain.Author{ID: d.ID, Username: d.Username, Email: d.Email, PushToken: d.PushToken}
}

const (
	emailIndex    = "email_unique"
	usernameIndex = "username_unique"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Init(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndex).SetCollation(usernameCollation),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt

	_, err := r.coll.InsertOne(ctx, userDocument{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		PushToken:    user.PushToken,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateUserErr(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// duplicateUserErr names the unique index that rejected an insert. The server
// reports it as "index: <name> dup key: ...".
func duplicateUserErr(err error) error {
	if strings.Contains(err.Error(), "index: "+emailIndex+" ") {
		return repository.ErrDuplicateEmail
	}
	return repository.ErrDuplicateUsername
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username}, options.FindOne().SetCollation(usernameCollation))
}

func (r *UserRepository) UpdatePushToken(ctx context.Context, id, token string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"pushToken": token, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("update push token: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// authorsByID resolves the author projection for a set of user ids.
func authorsByID(ctx context.Context, users *mongo.Collection, ids []string) (map[string]domain.Author, error) {
	authors := make(map[string]domain.Author, len(ids))
	if len(ids) == 0 {
		return authors, nil
	}

	cursor, err := users.Find(ctx,
		bson.M{"_id": bson.M{"$in": uniqueStrings(ids)}},
		options.Find().SetProjection(bson.M{"username": 1, "email": 1, "pushToken": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find authors: %w", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	for _, d := range docs {
		authors[d.ID] = d.toAuthor()
	}
	return authors, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
