package profiles

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cifan-festival/submission-service/internal/http/middleware"
	profileService "github.com/cifan-festival/submission-service/internal/services/profile"
	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

const photoFormField = "photo"

type ProfileHandlers struct {
	profiles *profileService.Service
	store    storage.DocumentStore
}

func NewProfileHandlers(profiles *profileService.Service, store storage.DocumentStore) *ProfileHandlers {
	return &ProfileHandlers{
		profiles: profiles,
		store:    store,
	}
}

// GetMe returns the caller's profile
// @Summary Get own profile
// @Tags profiles
// @Produce json
// @Success 200 {object} types.UserProfile "Profile"
// @Failure 404 {object} response.Response "Profile not found"
// @Security BearerAuth
// @Router /profile [get]
func (h *ProfileHandlers) GetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		profile, err := h.profiles.Get(r.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("profile not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to load profile")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Profile fetched successfully", profile))
	}
}

// PutMe creates or updates the caller's profile
// @Summary Save own profile
// @Tags profiles
// @Accept json
// @Produce json
// @Param profile body types.ProfileForm true "Profile fields"
// @Success 200 {object} types.UserProfile "Saved profile"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /profile [put]
func (h *ProfileHandlers) PutMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var form types.ProfileForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid request body")))
			return
		}

		validate := validator.New()
		if err := validate.Struct(form); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		email, verified := callerAccount(r, h.store, userID)

		profile, err := h.profiles.Save(r.Context(), userID, email, verified, &form)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Profile saved successfully", profile))
	}
}

// UploadPhoto stores a new profile photo
// @Summary Upload profile photo
// @Description Replace the profile photo; 5MB max, JPEG/PNG/WebP only
// @Tags profiles
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Photo file"
// @Success 200 {object} map[string]string "Photo URL"
// @Failure 400 {object} response.Response "Bad request"
// @Security BearerAuth
// @Router /profile/photo [post]
func (h *ProfileHandlers) UploadPhoto() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		file, header, err := r.FormFile(photoFormField)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("photo file is required")))
			return
		}
		defer file.Close()

		photo := &types.FileHandle{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Content:     file,
		}

		url, err := h.profiles.UploadPhoto(r.Context(), userID, photo)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("profile not found")))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Photo uploaded successfully", map[string]string{
			"photo_url": url,
		}))
	}
}

// DeletePhoto removes the profile photo
// @Summary Delete profile photo
// @Tags profiles
// @Produce json
// @Success 200 {object} response.Response "Photo deleted"
// @Security BearerAuth
// @Router /profile/photo [delete]
func (h *ProfileHandlers) DeletePhoto() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		if err := h.profiles.DeletePhoto(r.Context(), userID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("profile not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to delete photo")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Photo deleted successfully", nil))
	}
}

// callerAccount resolves the account email and verification flag from the
// user record, falling back to the session claim if the lookup fails.
func callerAccount(r *http.Request, store storage.DocumentStore, userID string) (string, bool) {
	if u, err := store.UserByID(r.Context(), userID); err == nil {
		return u.Email, u.EmailVerified
	}
	return "", middleware.IsEmailVerified(r.Context())
}
