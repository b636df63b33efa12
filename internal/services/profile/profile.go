package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/validation"
)

// PhotoStore is the blob surface used for profile photos.
type PhotoStore interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string, onProgress func(float64)) (types.FileMetadata, error)
	Delete(ctx context.Context, objectKey string) error
}

// KeyFunc builds the storage path for a profile photo.
type KeyFunc func(uid string, uploadedAt time.Time) string

// Service manages user profiles. A complete profile is a precondition for
// starting a submission.
type Service struct {
	store  storage.DocumentStore
	photos PhotoStore
	key    KeyFunc
	now    func() time.Time
}

func NewService(store storage.DocumentStore, photos PhotoStore, key KeyFunc) *Service {
	return &Service{
		store:  store,
		photos: photos,
		key:    key,
		now:    time.Now,
	}
}

func (s *Service) Get(ctx context.Context, uid string) (*types.UserProfile, error) {
	return s.store.Profile(ctx, uid)
}

// Save creates or updates the profile from form input. Age is derived from
// the birth date and the completeness flag is recomputed on every save.
func (s *Service) Save(ctx context.Context, uid, email string, emailVerified bool, form *types.ProfileForm) (*types.UserProfile, error) {
	birthDate, err := time.Parse("2006-01-02", form.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("birth date %q is not a valid date: %w", form.BirthDate, err)
	}

	now := s.now().UTC()

	profile := &types.UserProfile{
		UID:           uid,
		Email:         email,
		EmailVerified: emailVerified,
		FullNameEN:    form.FullNameEN,
		FullNameTH:    form.FullNameTH,
		BirthDate:     birthDate,
		Age:           CalculateAge(birthDate, now),
		PhoneNumber:   form.PhoneNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Preserve creation time and photo across updates.
	if existing, err := s.store.Profile(ctx, uid); err == nil {
		profile.CreatedAt = existing.CreatedAt
		profile.PhotoURL = existing.PhotoURL
		profile.PhotoPath = existing.PhotoPath
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	profile.IsComplete = IsComplete(profile)

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// UploadPhoto validates, stores and records a new profile photo, replacing
// any previous one. Returns the retrievable URL.
func (s *Service) UploadPhoto(ctx context.Context, uid string, photo *types.FileHandle) (string, error) {
	if photo == nil {
		return "", errors.New("photo file is required")
	}
	if err := validation.ProfilePhotoRule.Check(photo.Name, photo.Size, photo.ContentType); err != nil {
		return "", err
	}

	profile, err := s.store.Profile(ctx, uid)
	if err != nil {
		return "", err
	}

	// Remove the previous photo first. Best-effort: a stale object is
	// preferable to a failed replacement.
	if profile.PhotoPath != "" {
		if err := s.photos.Delete(ctx, profile.PhotoPath); err != nil {
			slog.Warn("Failed to delete previous profile photo",
				slog.String("uid", uid),
				slog.String("path", profile.PhotoPath),
				slog.String("error", err.Error()))
		}
	}

	objectKey := s.key(uid, s.now().UTC())
	meta, err := s.photos.Upload(ctx, objectKey, photo.Content, photo.Size, photo.ContentType, nil)
	if err != nil {
		return "", fmt.Errorf("failed to upload profile photo: %w", err)
	}

	profile.PhotoURL = meta.URL
	profile.PhotoPath = meta.StoragePath
	profile.UpdatedAt = s.now().UTC()

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return "", err
	}

	return meta.URL, nil
}

// DeletePhoto removes the stored photo and clears the profile reference.
func (s *Service) DeletePhoto(ctx context.Context, uid string) error {
	profile, err := s.store.Profile(ctx, uid)
	if err != nil {
		return err
	}
	if profile.PhotoPath == "" {
		return nil
	}

	if err := s.photos.Delete(ctx, profile.PhotoPath); err != nil {
		return fmt.Errorf("failed to delete profile photo: %w", err)
	}

	profile.PhotoURL = ""
	profile.PhotoPath = ""
	profile.UpdatedAt = s.now().UTC()

	return s.store.SaveProfile(ctx, profile)
}

// CalculateAge returns whole years between birth and now.
func CalculateAge(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// IsComplete reports whether the profile satisfies the submission
// precondition.
func IsComplete(p *types.UserProfile) bool {
	return p.FullNameEN != "" &&
		!p.BirthDate.IsZero() &&
		p.PhoneNumber != "" &&
		p.Email != ""
}
