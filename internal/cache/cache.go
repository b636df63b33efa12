package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/types/users"
	"github.com/go-redis/redis/v8"
)

// Store wraps a DocumentStore with Redis caching for the hot read paths:
// a user's submission list and their profile. Writes pass through and
// invalidate. Store itself satisfies storage.DocumentStore, so it drops in
// wherever the underlying store is used.
type Store struct {
	store storage.DocumentStore
	redis *redis.Client
}

func NewStore(store storage.DocumentStore, redisClient *redis.Client) *Store {
	return &Store{
		store: store,
		redis: redisClient,
	}
}

// Cache key patterns
const (
	submissionsKey = "submissions:user:%s" // submissions:user:userID
	profileKey     = "profile:%s"          // profile:uid
)

// Cache durations
const (
	submissionsCacheDuration = 45 * time.Second // list view refreshes often
	profileCacheDuration     = 5 * time.Minute  // profiles change rarely
)

func (c *Store) SubmissionsByUser(ctx context.Context, userID string) ([]types.SubmissionDocument, error) {
	key := fmt.Sprintf(submissionsKey, userID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var docs []types.SubmissionDocument
		if err := json.Unmarshal([]byte(cached), &docs); err == nil {
			return docs, nil
		}
	}

	docs, err := c.store.SubmissionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(docs)
	c.redis.Set(ctx, key, data, submissionsCacheDuration)

	return docs, nil
}

func (c *Store) InsertSubmission(ctx context.Context, doc *types.SubmissionDocument) (string, error) {
	id, err := c.store.InsertSubmission(ctx, doc)
	if err != nil {
		return "", err
	}

	c.redis.Del(ctx, fmt.Sprintf(submissionsKey, doc.UserID))
	return id, nil
}

func (c *Store) SubmissionByID(ctx context.Context, id string) (*types.SubmissionDocument, error) {
	// Detail views are rare enough to pass through.
	return c.store.SubmissionByID(ctx, id)
}

func (c *Store) ApplicationExists(ctx context.Context, applicationID string) (bool, error) {
	return c.store.ApplicationExists(ctx, applicationID)
}

func (c *Store) Profile(ctx context.Context, uid string) (*types.UserProfile, error) {
	key := fmt.Sprintf(profileKey, uid)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var profile types.UserProfile
		if err := json.Unmarshal([]byte(cached), &profile); err == nil {
			return &profile, nil
		}
	}

	profile, err := c.store.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(profile)
	c.redis.Set(ctx, key, data, profileCacheDuration)

	return profile, nil
}

func (c *Store) SaveProfile(ctx context.Context, profile *types.UserProfile) error {
	if err := c.store.SaveProfile(ctx, profile); err != nil {
		return err
	}

	c.redis.Del(ctx, fmt.Sprintf(profileKey, profile.UID))
	return nil
}

func (c *Store) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	return c.store.CreateUser(ctx, email, passwordHash)
}

func (c *Store) UserByEmail(ctx context.Context, email string) (*users.User, error) {
	return c.store.UserByEmail(ctx, email)
}

func (c *Store) UserByID(ctx context.Context, uid string) (*users.User, error) {
	return c.store.UserByID(ctx, uid)
}

func (c *Store) MarkEmailVerified(ctx context.Context, uid string) error {
	return c.store.MarkEmailVerified(ctx, uid)
}

// InvalidateUser clears every cache entry tied to one user.
func (c *Store) InvalidateUser(ctx context.Context, userID string) {
	c.redis.Del(ctx, fmt.Sprintf(submissionsKey, userID))
	c.redis.Del(ctx, fmt.Sprintf(profileKey, userID))
}
