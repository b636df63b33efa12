package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cifan-festival/submission-service/internal/config"
	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/types/users"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	submissionsCollection = "submissions"
	profilesCollection    = "profiles"
	usersCollection       = "users"

	connectTimeout = 10 * time.Second
)

type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongo(cfg *config.Config) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	m := &Mongo{
		client: client,
		db:     client.Database(cfg.Mongo.Database),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	slog.Info("Connected to MongoDB", slog.String("database", cfg.Mongo.Database))
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	// Single-field indexes only. Submission listings sort in the
	// application to avoid a composite index requirement.
	_, err := m.db.Collection(submissionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = m.db.Collection(submissionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "applicationId", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = m.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// mapErr translates driver errors into the storage sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 13 {
		return fmt.Errorf("%w: %s", storage.ErrUnauthorized, cmdErr.Message)
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.ErrDuplicateEmail
	}
	return err
}

func (m *Mongo) InsertSubmission(ctx context.Context, doc *types.SubmissionDocument) (string, error) {
	if doc.ID == "" {
		doc.ID = primitive.NewObjectID().Hex()
	}

	_, err := m.db.Collection(submissionsCollection).InsertOne(ctx, doc)
	if err != nil {
		return "", mapErr(err)
	}

	return doc.ID, nil
}

func (m *Mongo) SubmissionsByUser(ctx context.Context, userID string) ([]types.SubmissionDocument, error) {
	cursor, err := m.db.Collection(submissionsCollection).Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, mapErr(err)
	}

	var docs []types.SubmissionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}

	// Sorted here rather than in the query so the collection only needs the
	// userId index.
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].LastModified.After(docs[j].LastModified)
	})

	return docs, nil
}

func (m *Mongo) SubmissionByID(ctx context.Context, id string) (*types.SubmissionDocument, error) {
	var doc types.SubmissionDocument
	err := m.db.Collection(submissionsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, mapErr(err)
	}
	return &doc, nil
}

func (m *Mongo) ApplicationExists(ctx context.Context, applicationID string) (bool, error) {
	count, err := m.db.Collection(submissionsCollection).CountDocuments(ctx,
		bson.M{"applicationId": applicationID}, options.Count().SetLimit(1))
	if err != nil {
		return false, mapErr(err)
	}
	return count > 0, nil
}

func (m *Mongo) Profile(ctx context.Context, uid string) (*types.UserProfile, error) {
	var profile types.UserProfile
	err := m.db.Collection(profilesCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&profile)
	if err != nil {
		return nil, mapErr(err)
	}
	return &profile, nil
}

func (m *Mongo) SaveProfile(ctx context.Context, profile *types.UserProfile) error {
	_, err := m.db.Collection(profilesCollection).ReplaceOne(ctx,
		bson.M{"_id": profile.UID},
		profile,
		options.Replace().SetUpsert(true))
	return mapErr(err)
}

func (m *Mongo) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	user := users.User{
		UID:          primitive.NewObjectID().Hex(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := m.db.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		return "", mapErr(err)
	}

	return user.UID, nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*users.User, error) {
	var user users.User
	err := m.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (m *Mongo) UserByID(ctx context.Context, uid string) (*users.User, error) {
	var user users.User
	err := m.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (m *Mongo) MarkEmailVerified(ctx context.Context, uid string) error {
	res, err := m.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"emailVerified": true}})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
