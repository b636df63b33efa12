package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cifan-festival/submission-service/internal/config"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrUnauthorized is returned when the object store rejects an operation
// for missing permissions. Callers surface this distinctly because the user
// cannot self-recover from a bucket-policy problem.
var ErrUnauthorized = errors.New("storage permission denied")

// Service is the blob storage adapter. Concurrent calls are independent;
// the service holds no per-upload state.
type Service struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// NewService creates a new blob service instance backed by MinIO.
func NewService(cfg *config.Config) (*Service, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	service := &Service{
		client: client,
		bucket: cfg.MinIO.BucketName,
		useSSL: cfg.MinIO.UseSSL,
	}

	if err := service.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return service, nil
}

// ensureBucket creates the bucket if it doesn't exist.
func (s *Service) ensureBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// SubmissionObjectKey builds the deterministic, submission-scoped path for
// one of the three uploads. Scoping by submission id guarantees no
// collision between concurrent submissions and makes orphaned objects
// traceable to the submission that produced them.
func SubmissionObjectKey(submissionID string, role types.FileRole, fileName string) string {
	return fmt.Sprintf("submissions/%s/%s/%s", submissionID, role, fileName)
}

// ProfilePhotoObjectKey builds the path for a profile photo.
func ProfilePhotoObjectKey(uid string, uploadedAt time.Time) string {
	return fmt.Sprintf("profiles/%s/photo_%d", uid, uploadedAt.Unix())
}

// Upload stores the object at objectKey and returns its metadata once the
// store has confirmed durability. onProgress, when non-nil, receives
// monotonically increasing percentages in [0,100]; the final 100 is emitted
// only after the put succeeds. Upload does not retry; transient failures
// are the caller's to handle.
func (s *Service) Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string, onProgress func(float64)) (types.FileMetadata, error) {
	reader := &progressReader{
		r:          r,
		total:      size,
		onProgress: onProgress,
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return types.FileMetadata{}, mapErr(err)
	}

	if onProgress != nil {
		onProgress(100)
	}

	return types.FileMetadata{
		FileName:    path.Base(objectKey),
		Size:        size,
		ContentType: contentType,
		StoragePath: objectKey,
		URL:         s.ObjectURL(objectKey),
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Delete removes an object. Used for compensating cleanup when a later
// pipeline stage fails.
func (s *Service) Delete(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	return mapErr(err)
}

// Stat returns information about a stored object.
func (s *Service) Stat(ctx context.Context, objectKey string) (minio.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectKey, minio.StatObjectOptions{})
	return info, mapErr(err)
}

// ObjectURL returns the directly retrievable URL for an object.
func (s *Service) ObjectURL(objectKey string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}

	endpoint := strings.TrimPrefix(s.client.EndpointURL().String(), scheme+"://")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, s.bucket, objectKey)
}

// ListSubmissionObjects lists all objects stored under the submissions
// prefix, optionally restricted to one submission id.
func (s *Service) ListSubmissionObjects(ctx context.Context, submissionID string) ([]minio.ObjectInfo, error) {
	prefix := "submissions/"
	if submissionID != "" {
		prefix = fmt.Sprintf("submissions/%s/", submissionID)
	}

	var objects []minio.ObjectInfo
	objectsCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return nil, mapErr(object.Err)
		}
		objects = append(objects, object)
	}

	return objects, nil
}

// SubmissionIDFromKey extracts the submission id segment from a
// submissions/{id}/{role}/{file} object key.
func SubmissionIDFromKey(objectKey string) string {
	parts := strings.SplitN(objectKey, "/", 3)
	if len(parts) < 3 || parts[0] != "submissions" {
		return ""
	}
	return parts[1]
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "AccessDenied" {
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Message)
	}
	return err
}

// progressReader reports read progress as a percentage of the declared
// total. Percentages never decrease and stop short of 100, which the
// caller emits only after the store confirms the write.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	last       float64
	onProgress func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	if p.onProgress != nil && p.total > 0 {
		pct := float64(p.read) / float64(p.total) * 100
		if pct > 99 {
			pct = 99
		}
		if pct > p.last {
			p.last = pct
			p.onProgress(pct)
		}
	}

	return n, err
}
