package submissions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cifan-festival/submission-service/internal/events"
	"github.com/cifan-festival/submission-service/internal/http/middleware"
	"github.com/cifan-festival/submission-service/internal/services/submission"
	"github.com/cifan-festival/submission-service/internal/storage"
	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/cifan-festival/submission-service/internal/utils/response"
)

// Multipart memory threshold; larger parts spill to temp files. The film
// alone can be 500MB, so most of the body streams through disk.
const maxMultipartMemory = 32 << 20

type SubmissionHandlers struct {
	pipeline  *submission.Service
	store     storage.DocumentStore
	publisher *events.Publisher
}

func NewSubmissionHandlers(pipeline *submission.Service, store storage.DocumentStore, publisher *events.Publisher) *SubmissionHandlers {
	return &SubmissionHandlers{
		pipeline:  pipeline,
		store:     store,
		publisher: publisher,
	}
}

// Submit runs the submission pipeline for a multipart application form
// @Summary Submit a competition application
// @Description Validate the form, upload the three files and persist the application
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Param category formData string true "Competition category (youth/future/world)"
// @Param film formData file true "Film file"
// @Param poster formData file true "Poster file"
// @Param proof formData file true "Proof document"
// @Success 201 {object} submission.Result "Submission accepted"
// @Failure 400 {object} response.Response "Validation failed"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Pipeline failure"
// @Security BearerAuth
// @Router /submissions [post]
func (h *SubmissionHandlers) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid multipart form")))
			return
		}
		defer r.MultipartForm.RemoveAll()

		draft, err := draftFromForm(r, userID)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		result := h.pipeline.Submit(r.Context(), draft, h.publisher.ProgressSink(userID))

		if !result.Success {
			h.publisher.PublishFailed(userID, result.Err)
			writeFailure(w, result.Err)
			return
		}

		h.publisher.PublishCompleted(userID, result)
		slog.Info("Submission persisted",
			slog.String("user_id", userID),
			slog.String("submission_id", result.SubmissionID),
			slog.String("application_id", result.ApplicationID))

		response.WriteJSON(w, http.StatusCreated, response.RequestOK("Submission completed successfully", result))
	}
}

// writeFailure maps the pipeline error triple onto a status code. The code
// and stage reach the client unchanged so it can render stage-specific
// guidance and a retry action.
func writeFailure(w http.ResponseWriter, perr *submission.PipelineError) {
	status := http.StatusInternalServerError
	switch perr.Code {
	case submission.CodeValidationFailed:
		status = http.StatusBadRequest
	case submission.CodeStorageUnauthorized, submission.CodeDatabaseUnauthorized:
		// Configuration problem, not something the user can fix by
		// retrying; the client directs them to support.
		status = http.StatusBadGateway
	}

	resp := response.CodedError(perr, perr.Code)
	resp.Data = map[string]interface{}{
		"stage":  perr.Stage,
		"fields": perr.Fields,
	}
	response.WriteJSON(w, status, resp)
}

// List returns the caller's applications, most recently modified first
// @Summary List own submissions
// @Tags submissions
// @Produce json
// @Success 200 {array} types.SubmissionDocument "Submissions"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /submissions [get]
func (h *SubmissionHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		docs, err := h.store.SubmissionsByUser(r.Context(), userID)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list submissions")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Submissions fetched successfully", docs))
	}
}

// Get returns one of the caller's applications
// @Summary Get a submission
// @Tags submissions
// @Produce json
// @Param id path string true "Submission id"
// @Success 200 {object} types.SubmissionDocument "Submission"
// @Failure 404 {object} response.Response "Not found"
// @Security BearerAuth
// @Router /submissions/{id} [get]
func (h *SubmissionHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		id := r.PathValue("id")
		if id == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("id is required")))
			return
		}

		doc, err := h.pipeline.Get(r.Context(), userID, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("submission not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to load submission")))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Submission fetched successfully", doc))
	}
}

// draftFromForm assembles a SubmissionDraft from the multipart request.
// Field-level correctness is the validation stage's job; this only shapes
// the input.
func draftFromForm(r *http.Request, userID string) (*types.SubmissionDraft, error) {
	form := r.MultipartForm.Value

	value := func(key string) string {
		if vs := form[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	flag := func(key string) bool {
		return value(key) == "true" || value(key) == "1" || value(key) == "on"
	}

	draft := &types.SubmissionDraft{
		Category: types.Category(value("category")),
		UserID:   userID,

		FilmTitle:           value("film_title"),
		FilmTitleTh:         value("film_title_th"),
		Genres:              form["genres"],
		Format:              types.FilmFormat(value("format")),
		Duration:            value("duration"),
		Synopsis:            value("synopsis"),
		ChiangmaiConnection: value("chiangmai_connection"),

		Nationality: value("nationality"),

		SubmitterName:       value("submitter_name"),
		SubmitterNameTh:     value("submitter_name_th"),
		SubmitterAge:        value("submitter_age"),
		SubmitterPhone:      value("submitter_phone"),
		SubmitterEmail:      value("submitter_email"),
		SubmitterRole:       value("submitter_role"),
		SubmitterCustomRole: value("submitter_custom_role"),

		SchoolName: value("school_name"),
		StudentID:  value("student_id"),

		UniversityName: value("university_name"),
		Faculty:        value("faculty"),
		UniversityID:   value("university_id"),

		Agreements: types.Agreements{
			Copyright:     flag("agreement_copyright"),
			Terms:         flag("agreement_terms"),
			Promotional:   flag("agreement_promotional"),
			FinalDecision: flag("agreement_final_decision"),
		},
	}

	if crewJSON := value("crew_members"); crewJSON != "" {
		if err := json.Unmarshal([]byte(crewJSON), &draft.CrewMembers); err != nil {
			return nil, fmt.Errorf("crew_members is not valid JSON: %w", err)
		}
	}

	var err error
	if draft.FilmFile, err = fileHandle(r, "film"); err != nil {
		return nil, err
	}
	if draft.PosterFile, err = fileHandle(r, "poster"); err != nil {
		return nil, err
	}
	if draft.ProofFile, err = fileHandle(r, "proof"); err != nil {
		return nil, err
	}

	return draft, nil
}

// fileHandle wraps one multipart file part. A missing part yields a nil
// handle, which validation reports as a field error rather than a
// malformed request.
func fileHandle(r *http.Request, field string) (*types.FileHandle, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s file: %w", field, err)
	}

	return &types.FileHandle{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}, nil
}
