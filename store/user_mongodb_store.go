package store

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
)

const (
	emailIndex    = "email_1"
	usernameIndex = "username_1"
)

var duplicateIndexPattern = regexp.MustCompile(`index: (\S+)`)

type UserMongoDBStore struct {
	users  *mongo.Collection
	tracer trace.Tracer
}

func NewUserMongoDBStore(client *mongo.Client, database string, tracer trace.Tracer) *UserMongoDBStore {
	users := client.Database(database).Collection(USERS_COLLECTION)
	return &UserMongoDBStore{
		users:  users,
		tracer: tracer,
	}
}

// EnsureIndexes creates the unique indexes that back the duplicate checks.
func (store *UserMongoDBStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := store.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName(usernameIndex).SetUnique(true)},
	})
	return err
}

func (store *UserMongoDBStore) Register(ctx context.Context, user *domain.User) error {
	ctx, span := store.tracer.Start(ctx, "UserStore.Register")
	defer span.End()
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	user.ID = primitive.NewObjectID()
	_, err := store.users.InsertOne(ctx, user)
	if err != nil {
		span.SetStatus(codes.Error, "Error inserting user")
		return duplicateKeyError(err)
	}
	return nil
}

func (store *UserMongoDBStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetByID")
	defer span.End()

	return store.filterOne(ctx, bson.M{"_id": id})
}

func (store *UserMongoDBStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetByUsername")
	defer span.End()

	return store.filterOne(ctx, bson.M{"username": username})
}

func (store *UserMongoDBStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := store.tracer.Start(ctx, "UserStore.GetByEmail")
	defer span.End()

	return store.filterOne(ctx, bson.M{"email": email})
}

func (store *UserMongoDBStore) filterOne(ctx context.Context, filter interface{}) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user domain.User
	if err := store.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// duplicateKeyError maps a unique index violation to the domain error for the
// violated index. The index name is read from the server message, never the
// duplicated value, which may contain anything.
func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	switch duplicateIndex(err.Error()) {
	case emailIndex:
		return domain.ErrDuplicateEmail
	case usernameIndex:
		return domain.ErrDuplicateUsername
	default:
		return err
	}
}

func duplicateIndex(message string) string {
	match := duplicateIndexPattern.FindStringSubmatch(message)
	if match == nil {
		return ""
	}
	return match[1]
}
