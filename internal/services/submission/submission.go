package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cifan-festival/submission-service/internal/services/blob"
	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/validation"
	"github.com/google/uuid"
)

// Error codes reported in pipeline results.
const (
	CodeValidationFailed     = "validation-failed"
	CodeUploadFailed         = "upload-failed"
	CodeStorageUnauthorized  = "storage-unauthorized"
	CodeDatabaseFailed       = "database-error"
	CodeDatabaseUnauthorized = "database-unauthorized"
)

// BlobStore is the upload adapter surface the pipeline needs.
type BlobStore interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string, onProgress func(float64)) (types.FileMetadata, error)
	Delete(ctx context.Context, objectKey string) error
}

// ProgressSink receives pipeline progress events. A nil sink is allowed.
type ProgressSink func(types.ProgressEvent)

// PipelineError is a stage failure mapped to a stable (message, code,
// stage) triple. Fields carries the per-field reasons for validation
// failures.
type PipelineError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Stage   types.Stage       `json:"stage"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s (%s at %s)", e.Message, e.Code, e.Stage)
}

// Result is the outcome of one Submit call. Failures are returned as
// values, never panics, so the caller can render stage-appropriate
// guidance and offer a retry.
type Result struct {
	Success       bool           `json:"success"`
	SubmissionID  string         `json:"submission_id,omitempty"`
	ApplicationID string         `json:"application_id,omitempty"`
	Err           *PipelineError `json:"error,omitempty"`
}

// Service drives the submission pipeline:
// validating -> uploading -> saving -> complete, with an absorbing error
// state reachable from any stage. Collaborators are injected so the
// pipeline can be exercised with fakes.
type Service struct {
	blobs BlobStore
	store storage.DocumentStore

	now      func() time.Time
	newToken func() string
}

func NewService(blobs BlobStore, store storage.DocumentStore) *Service {
	return &Service{
		blobs: blobs,
		store: store,
		now:   time.Now,
		newToken: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
		},
	}
}

// Submit runs the full pipeline for one draft. Every call generates a
// fresh application id and fresh storage paths: a retry after failure is a
// new attempt, never a resume.
func (s *Service) Submit(ctx context.Context, draft *types.SubmissionDraft, sink ProgressSink) Result {
	applicationID := fmt.Sprintf("%s_%d_%s", draft.Category, s.now().UnixMilli(), s.newToken())

	emit := func(ev types.ProgressEvent) {
		if sink != nil {
			sink(ev)
		}
	}

	// Stage 1: validation. No side effects on failure.
	emit(types.ProgressEvent{Stage: types.StageValidating, Progress: 0, Message: "Validating form data and files"})

	if fieldErrs := validation.CheckDraft(draft); len(fieldErrs) > 0 {
		return s.fail(emit, &PipelineError{
			Message: "submission validation failed",
			Code:    CodeValidationFailed,
			Stage:   types.StageValidating,
			Fields:  fieldErrs,
		})
	}

	// Stage 2: concurrent uploads at submission-scoped paths.
	emit(types.ProgressEvent{Stage: types.StageUploading, Progress: 20, Message: "Uploading files"})

	metaByRole, uploadErr := s.uploadFiles(ctx, draft, applicationID, emit)
	if uploadErr != nil {
		s.compensate(ctx, metaByRole)

		code := CodeUploadFailed
		if errors.Is(uploadErr, blob.ErrUnauthorized) {
			code = CodeStorageUnauthorized
		}
		return s.fail(emit, &PipelineError{
			Message: fmt.Sprintf("file upload failed: %v", uploadErr),
			Code:    code,
			Stage:   types.StageUploading,
		})
	}

	// Stage 3: persist the normalized document.
	emit(types.ProgressEvent{Stage: types.StageSaving, Progress: 80, Message: "Saving submission"})

	doc, err := normalize(draft, metaByRole, applicationID, s.now().UTC())
	if err != nil {
		s.compensate(ctx, metaByRole)
		return s.fail(emit, &PipelineError{
			Message: err.Error(),
			Code:    CodeDatabaseFailed,
			Stage:   types.StageSaving,
		})
	}

	submissionID, err := s.store.InsertSubmission(ctx, doc)
	if err != nil {
		// Uploads are durable at this point; delete them so a database
		// failure does not leave orphaned blobs behind.
		s.compensate(ctx, metaByRole)

		code := CodeDatabaseFailed
		if errors.Is(err, storage.ErrUnauthorized) {
			code = CodeDatabaseUnauthorized
		}
		return s.fail(emit, &PipelineError{
			Message: fmt.Sprintf("files were stored but the submission could not be saved: %v", err),
			Code:    code,
			Stage:   types.StageSaving,
		})
	}

	// Stage 4: complete.
	emit(types.ProgressEvent{Stage: types.StageComplete, Progress: 100, Message: "Submission completed successfully"})

	return Result{
		Success:       true,
		SubmissionID:  submissionID,
		ApplicationID: applicationID,
	}
}

// uploadFiles runs the three uploads concurrently and joins before
// returning. Overall progress is reported as 20 + 0.6 * mean(per-file
// percentages), keeping the uploading stage inside the [20,80] band. The
// returned map holds every upload that completed, including ones that
// finished before another upload failed; the caller owns their cleanup.
func (s *Service) uploadFiles(ctx context.Context, draft *types.SubmissionDraft, applicationID string, emit ProgressSink) (map[types.FileRole]types.FileMetadata, error) {
	var mu sync.Mutex
	fileProgress := map[types.FileRole]float64{
		types.RoleFilm:   0,
		types.RolePoster: 0,
		types.RoleProof:  0,
	}
	lastOverall := 20.0

	report := func(role types.FileRole, pct float64) {
		mu.Lock()
		defer mu.Unlock()

		if pct < fileProgress[role] {
			return
		}
		fileProgress[role] = pct

		var total float64
		for _, p := range fileProgress {
			total += p
		}
		overall := 20 + (total/3)*0.6
		if overall < lastOverall {
			return
		}
		lastOverall = overall

		snapshot := make(map[types.FileRole]float64, len(fileProgress))
		for r, p := range fileProgress {
			snapshot[r] = p
		}
		emit(types.ProgressEvent{
			Stage:        types.StageUploading,
			Progress:     overall,
			Message:      "Uploading files",
			FileProgress: snapshot,
		})
	}

	metaByRole := make(map[types.FileRole]types.FileMetadata, 3)
	errByRole := make(map[types.FileRole]error, 3)

	var wg sync.WaitGroup
	for role, handle := range draft.Files() {
		wg.Add(1)
		go func(role types.FileRole, handle *types.FileHandle) {
			defer wg.Done()

			objectKey := blob.SubmissionObjectKey(applicationID, role, handle.Name)
			meta, err := s.blobs.Upload(ctx, objectKey, handle.Content, handle.Size, handle.ContentType, func(pct float64) {
				report(role, pct)
			})

			mu.Lock()
			if err != nil {
				errByRole[role] = err
			} else {
				metaByRole[role] = meta
			}
			mu.Unlock()
		}(role, handle)
	}
	wg.Wait()

	for _, role := range []types.FileRole{types.RoleFilm, types.RolePoster, types.RoleProof} {
		if err := errByRole[role]; err != nil {
			return metaByRole, fmt.Errorf("%s upload: %w", role, err)
		}
	}

	return metaByRole, nil
}

// compensate deletes already-uploaded blobs after a later stage fails.
// Best-effort: its own failures are logged, never surfaced, so the primary
// error is not masked.
func (s *Service) compensate(ctx context.Context, metaByRole map[types.FileRole]types.FileMetadata) {
	for role, meta := range metaByRole {
		if err := s.blobs.Delete(ctx, meta.StoragePath); err != nil {
			slog.Error("Failed to delete uploaded file during cleanup",
				slog.String("role", string(role)),
				slog.String("path", meta.StoragePath),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Service) fail(emit ProgressSink, perr *PipelineError) Result {
	emit(types.ProgressEvent{Stage: types.StageError, Progress: 0, Message: perr.Message})
	return Result{Success: false, Err: perr}
}

// List returns the user's submissions, most recently modified first.
func (s *Service) List(ctx context.Context, userID string) ([]types.SubmissionDocument, error) {
	return s.store.SubmissionsByUser(ctx, userID)
}

// Get returns one submission, enforcing ownership. A document owned by
// another user is reported as not found rather than forbidden.
func (s *Service) Get(ctx context.Context, userID, submissionID string) (*types.SubmissionDocument, error) {
	doc, err := s.store.SubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}
