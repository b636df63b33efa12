package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cifan-festival/submission-service/internal/services/blob"
	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/types/users"
)

// fakeBlobStore records uploads and deletes, with per-role failure
// injection keyed on the object path.
type fakeBlobStore struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
	failOn  map[types.FileRole]error
}

func (f *fakeBlobStore) Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string, onProgress func(float64)) (types.FileMetadata, error) {
	f.mu.Lock()
	failOn := f.failOn
	f.mu.Unlock()

	for role, err := range failOn {
		if strings.Contains(objectKey, "/"+string(role)+"/") {
			return types.FileMetadata{}, err
		}
	}

	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, objectKey)
	f.mu.Unlock()

	return types.FileMetadata{
		FileName:    objectKey[strings.LastIndex(objectKey, "/")+1:],
		Size:        size,
		ContentType: contentType,
		StoragePath: objectKey,
		URL:         "http://blobs.test/" + objectKey,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, objectKey)
	return nil
}

func (f *fakeBlobStore) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeBlobStore) deleteCounts() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, key := range f.deletes {
		counts[key]++
	}
	return counts
}

// fakeDocStore implements storage.DocumentStore with an injectable insert
// error. Only the submission methods matter to the pipeline.
type fakeDocStore struct {
	insertErr error
	inserted  []*types.SubmissionDocument
	docs      map[string]*types.SubmissionDocument
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]*types.SubmissionDocument)}
}

func (f *fakeDocStore) InsertSubmission(ctx context.Context, doc *types.SubmissionDocument) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	id := fmt.Sprintf("doc_%d", len(f.inserted)+1)
	doc.ID = id
	f.inserted = append(f.inserted, doc)
	f.docs[id] = doc
	return id, nil
}

func (f *fakeDocStore) SubmissionsByUser(ctx context.Context, userID string) ([]types.SubmissionDocument, error) {
	var out []types.SubmissionDocument
	for _, doc := range f.inserted {
		if doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeDocStore) SubmissionByID(ctx context.Context, id string) (*types.SubmissionDocument, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocStore) ApplicationExists(ctx context.Context, applicationID string) (bool, error) {
	for _, doc := range f.inserted {
		if doc.ApplicationID == applicationID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDocStore) Profile(ctx context.Context, uid string) (*types.UserProfile, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeDocStore) SaveProfile(ctx context.Context, profile *types.UserProfile) error {
	return nil
}

func (f *fakeDocStore) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeDocStore) UserByEmail(ctx context.Context, email string) (*users.User, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeDocStore) UserByID(ctx context.Context, uid string) (*users.User, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeDocStore) MarkEmailVerified(ctx context.Context, uid string) error {
	return nil
}

// eventRecorder collects pipeline events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []types.ProgressEvent
}

func (r *eventRecorder) sink() ProgressSink {
	return func(ev types.ProgressEvent) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	}
}

func (r *eventRecorder) all() []types.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ProgressEvent(nil), r.events...)
}

func testDraft(category types.Category) *types.SubmissionDraft {
	draft := &types.SubmissionDraft{
		Category: category,
		UserID:   "user_1",

		FilmTitle:           "Lantern Season",
		FilmTitleTh:         "ฤดูโคม",
		Genres:              []string{"drama"},
		Format:              types.FormatLiveAction,
		Duration:            "12",
		Synopsis:            "A short film about letting go.",
		ChiangmaiConnection: "Shot in the old city.",

		Nationality: "Thailand",

		SubmitterName:   "Anong P.",
		SubmitterNameTh: "อนงค์",
		SubmitterAge:    "16",
		SubmitterPhone:  "0812345678",
		SubmitterEmail:  "anong@example.com",
		SubmitterRole:   "Director",

		SchoolName: "Chiang Mai High School",
		StudentID:  "CMHS-1024",

		FilmFile:   &types.FileHandle{Name: "film.mp4", Size: 100 << 20, ContentType: "video/mp4", Content: strings.NewReader("film")},
		PosterFile: &types.FileHandle{Name: "poster.jpg", Size: 2 << 20, ContentType: "image/jpeg", Content: strings.NewReader("poster")},
		ProofFile:  &types.FileHandle{Name: "id.pdf", Size: 1 << 20, ContentType: "application/pdf", Content: strings.NewReader("proof")},

		Agreements: types.Agreements{Copyright: true, Terms: true, Promotional: true, FinalDecision: true},
	}
	return draft
}

func newTestService(blobs *fakeBlobStore, store *fakeDocStore) *Service {
	svc := NewService(blobs, store)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	svc.newToken = func() string { return "tok123abc" }
	return svc
}

func TestSubmit_Success(t *testing.T) {
	blobs := &fakeBlobStore{}
	store := newFakeDocStore()
	svc := newTestService(blobs, store)

	rec := &eventRecorder{}
	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), rec.sink())

	if !result.Success {
		t.Fatalf("Expected success, got error %+v", result.Err)
	}
	if result.SubmissionID == "" {
		t.Fatal("Expected a submission id")
	}
	if !strings.HasPrefix(result.ApplicationID, "youth_") {
		t.Fatalf("Expected application id with category prefix, got %q", result.ApplicationID)
	}
	if !strings.HasSuffix(result.ApplicationID, "_tok123abc") {
		t.Fatalf("Expected application id with random suffix, got %q", result.ApplicationID)
	}

	if blobs.uploadCount() != 3 {
		t.Fatalf("Expected 3 uploads, got %d", blobs.uploadCount())
	}
	if len(blobs.deletes) != 0 {
		t.Fatalf("Expected no deletes on success, got %v", blobs.deletes)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("Expected 1 persisted document, got %d", len(store.inserted))
	}
	doc := store.inserted[0]
	if doc.Status != types.StatusSubmitted {
		t.Fatalf("Expected status submitted, got %q", doc.Status)
	}
	if doc.ApplicationID != result.ApplicationID {
		t.Fatalf("Document application id %q does not match result %q", doc.ApplicationID, result.ApplicationID)
	}
	if doc.Files.FilmFile.StoragePath == "" || doc.Files.PosterFile.StoragePath == "" || doc.Files.ProofFile.StoragePath == "" {
		t.Fatal("Expected every file to carry a storage path")
	}
	wantPrefix := "submissions/" + result.ApplicationID + "/"
	if !strings.HasPrefix(doc.Files.FilmFile.StoragePath, wantPrefix) {
		t.Fatalf("Expected submission-scoped path, got %q", doc.Files.FilmFile.StoragePath)
	}
}

func TestSubmit_ValidationFailureHasNoSideEffects(t *testing.T) {
	blobs := &fakeBlobStore{}
	store := newFakeDocStore()
	svc := newTestService(blobs, store)

	draft := testDraft(types.CategoryYouth)
	draft.PosterFile = &types.FileHandle{Name: "poster.jpg", Size: 15 << 20, ContentType: "image/jpeg", Content: strings.NewReader("poster")}

	result := svc.Submit(context.Background(), draft, nil)

	if result.Success {
		t.Fatal("Expected failure for oversized poster")
	}
	if result.Err.Code != CodeValidationFailed {
		t.Fatalf("Expected code %q, got %q", CodeValidationFailed, result.Err.Code)
	}
	if result.Err.Stage != types.StageValidating {
		t.Fatalf("Expected validating stage, got %q", result.Err.Stage)
	}
	if _, ok := result.Err.Fields["posterFile"]; !ok {
		t.Fatalf("Expected posterFile field error, got %v", result.Err.Fields)
	}

	if blobs.uploadCount() != 0 {
		t.Fatalf("Expected no uploads after validation failure, got %d", blobs.uploadCount())
	}
	if len(store.inserted) != 0 {
		t.Fatalf("Expected no documents after validation failure, got %d", len(store.inserted))
	}
}

func TestSubmit_UploadFailureCompensates(t *testing.T) {
	blobs := &fakeBlobStore{failOn: map[types.FileRole]error{
		types.RoleFilm: errors.New("connection reset"),
	}}
	store := newFakeDocStore()
	svc := newTestService(blobs, store)

	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), nil)

	if result.Success {
		t.Fatal("Expected failure when the film upload fails")
	}
	if result.Err.Code != CodeUploadFailed {
		t.Fatalf("Expected code %q, got %q", CodeUploadFailed, result.Err.Code)
	}
	if result.Err.Stage != types.StageUploading {
		t.Fatalf("Expected uploading stage, got %q", result.Err.Stage)
	}

	// The poster and proof uploads succeeded and must each be deleted
	// exactly once.
	if blobs.uploadCount() != 2 {
		t.Fatalf("Expected 2 successful uploads, got %d", blobs.uploadCount())
	}
	counts := blobs.deleteCounts()
	if len(counts) != 2 {
		t.Fatalf("Expected 2 objects deleted, got %v", counts)
	}
	for key, n := range counts {
		if n != 1 {
			t.Fatalf("Expected %q deleted exactly once, deleted %d times", key, n)
		}
	}

	if len(store.inserted) != 0 {
		t.Fatalf("Expected no documents after upload failure, got %d", len(store.inserted))
	}
}

func TestSubmit_StorageUnauthorized(t *testing.T) {
	blobs := &fakeBlobStore{failOn: map[types.FileRole]error{
		types.RolePoster: fmt.Errorf("put object: %w", blob.ErrUnauthorized),
	}}
	store := newFakeDocStore()
	svc := newTestService(blobs, store)

	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), nil)

	if result.Success {
		t.Fatal("Expected failure when storage denies the upload")
	}
	if result.Err.Code != CodeStorageUnauthorized {
		t.Fatalf("Expected code %q, got %q", CodeStorageUnauthorized, result.Err.Code)
	}
}

func TestSubmit_PersistFailureDeletesAllUploads(t *testing.T) {
	blobs := &fakeBlobStore{}
	store := newFakeDocStore()
	store.insertErr = errors.New("write timeout")
	svc := newTestService(blobs, store)

	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), nil)

	if result.Success {
		t.Fatal("Expected failure when the document write fails")
	}
	if result.Err.Code != CodeDatabaseFailed {
		t.Fatalf("Expected code %q, got %q", CodeDatabaseFailed, result.Err.Code)
	}
	if result.Err.Stage != types.StageSaving {
		t.Fatalf("Expected saving stage, got %q", result.Err.Stage)
	}
	if !strings.Contains(result.Err.Message, "files were stored but the submission could not be saved") {
		t.Fatalf("Expected orphan-explaining message, got %q", result.Err.Message)
	}

	// All three durable uploads must be compensated, each exactly once.
	counts := blobs.deleteCounts()
	if len(counts) != 3 {
		t.Fatalf("Expected 3 objects deleted, got %v", counts)
	}
	for key, n := range counts {
		if n != 1 {
			t.Fatalf("Expected %q deleted exactly once, deleted %d times", key, n)
		}
	}
}

func TestSubmit_DatabaseUnauthorized(t *testing.T) {
	blobs := &fakeBlobStore{}
	store := newFakeDocStore()
	store.insertErr = fmt.Errorf("insert: %w", storage.ErrUnauthorized)
	svc := newTestService(blobs, store)

	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), nil)

	if result.Success {
		t.Fatal("Expected failure when the database denies the write")
	}
	if result.Err.Code != CodeDatabaseUnauthorized {
		t.Fatalf("Expected code %q, got %q", CodeDatabaseUnauthorized, result.Err.Code)
	}
	if len(blobs.deleteCounts()) != 3 {
		t.Fatalf("Expected all uploads compensated, got %v", blobs.deleteCounts())
	}
}

func TestSubmit_ProgressSequence(t *testing.T) {
	blobs := &fakeBlobStore{}
	store := newFakeDocStore()
	svc := newTestService(blobs, store)

	rec := &eventRecorder{}
	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), rec.sink())
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result.Err)
	}

	events := rec.all()
	if len(events) < 4 {
		t.Fatalf("Expected at least 4 events, got %d", len(events))
	}

	if events[0].Stage != types.StageValidating || events[0].Progress != 0 {
		t.Fatalf("Expected validating@0 first, got %+v", events[0])
	}

	last := events[len(events)-1]
	if last.Stage != types.StageComplete || last.Progress != 100 {
		t.Fatalf("Expected complete@100 last, got %+v", last)
	}

	// Progress never decreases across the whole run.
	prev := events[0].Progress
	for i, ev := range events[1:] {
		if ev.Progress < prev {
			t.Fatalf("Progress decreased at event %d: %v -> %v", i+1, prev, ev.Progress)
		}
		prev = ev.Progress
	}

	// Uploading events stay inside the [20,80] band.
	for _, ev := range events {
		if ev.Stage == types.StageUploading && (ev.Progress < 20 || ev.Progress > 80) {
			t.Fatalf("Uploading progress %v outside [20,80]", ev.Progress)
		}
	}
}

func TestSubmit_FailureEmitsErrorEvent(t *testing.T) {
	blobs := &fakeBlobStore{failOn: map[types.FileRole]error{
		types.RoleProof: errors.New("connection reset"),
	}}
	store := newFakeDocStore()
	svc := newTestService(blobs, store)

	rec := &eventRecorder{}
	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), rec.sink())
	if result.Success {
		t.Fatal("Expected failure")
	}

	events := rec.all()
	last := events[len(events)-1]
	if last.Stage != types.StageError {
		t.Fatalf("Expected terminal error event, got %+v", last)
	}
}

func TestSubmit_FreshApplicationIDPerAttempt(t *testing.T) {
	blobs := &fakeBlobStore{}
	store := newFakeDocStore()
	svc := NewService(blobs, store)

	first := svc.Submit(context.Background(), testDraft(types.CategoryYouth), nil)
	if !first.Success {
		t.Fatalf("Expected first attempt to succeed, got %+v", first.Err)
	}

	second := svc.Submit(context.Background(), testDraft(types.CategoryYouth), nil)
	if !second.Success {
		t.Fatalf("Expected second attempt to succeed, got %+v", second.Err)
	}

	if first.ApplicationID == second.ApplicationID {
		t.Fatalf("Expected distinct application ids, both were %q", first.ApplicationID)
	}
}

func TestGet_EnforcesOwnership(t *testing.T) {
	blobs := &fakeBlobStore{}
	store := newFakeDocStore()
	svc := newTestService(blobs, store)

	result := svc.Submit(context.Background(), testDraft(types.CategoryYouth), nil)
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result.Err)
	}

	if _, err := svc.Get(context.Background(), "user_1", result.SubmissionID); err != nil {
		t.Fatalf("Expected owner to read their submission, got %v", err)
	}

	_, err := svc.Get(context.Background(), "someone_else", result.SubmissionID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected not-found for another user's submission, got %v", err)
	}
}
