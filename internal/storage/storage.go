package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/types/users"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrUnauthorized is returned when the database rejects an operation for
// missing permissions. Surfaced distinctly so callers can tell a
// configuration problem from a transient write failure.
var ErrUnauthorized = errors.New("database permission denied")

// ErrDuplicateEmail is returned when a sign-up reuses an existing address.
var ErrDuplicateEmail = errors.New("email already registered")

// DocumentStore is the document database surface consumed by the services.
type DocumentStore interface {
	InsertSubmission(ctx context.Context, doc *types.SubmissionDocument) (string, error)
	SubmissionsByUser(ctx context.Context, userID string) ([]types.SubmissionDocument, error)
	SubmissionByID(ctx context.Context, id string) (*types.SubmissionDocument, error)
	// ApplicationExists reports whether any document carries the given
	// client-generated application id. Used by the orphan sweeper.
	ApplicationExists(ctx context.Context, applicationID string) (bool, error)

	Profile(ctx context.Context, uid string) (*types.UserProfile, error)
	SaveProfile(ctx context.Context, profile *types.UserProfile) error

	CreateUser(ctx context.Context, email, passwordHash string) (string, error)
	UserByEmail(ctx context.Context, email string) (*users.User, error)
	UserByID(ctx context.Context, uid string) (*users.User, error)
	MarkEmailVerified(ctx context.Context, uid string) error
}

// Clock abstracts time for services that stamp documents.
type Clock func() time.Time
