package types

import "io"

// Category is one of the three competition tracks. Each track has its own
// set of required fields, enforced by the validation package.
type Category string

const (
	CategoryYouth  Category = "youth"
	CategoryFuture Category = "future"
	CategoryWorld  Category = "world"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryYouth, CategoryFuture, CategoryWorld:
		return true
	}
	return false
}

// Status of an application. The only modeled transition is draft -> submitted.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// FileRole identifies one of the three uploads that make up a submission.
type FileRole string

const (
	RoleFilm   FileRole = "film"
	RolePoster FileRole = "poster"
	RoleProof  FileRole = "proof"
)

// FilmFormat of the submitted work.
type FilmFormat string

const (
	FormatLiveAction FilmFormat = "live-action"
	FormatAnimation  FilmFormat = "animation"
)

// CrewRoleOther is the sentinel role that requires a free-text CustomRole.
const CrewRoleOther = "Other"

// FileHandle is a not-yet-uploaded file as received from the client.
// Content is consumed exactly once by the upload stage.
type FileHandle struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// CrewMember is a non-submitter contributor listed on an application.
// School fields apply to the youth and future tracks only.
type CrewMember struct {
	FullName   string `json:"fullName" validate:"required"`
	FullNameTh string `json:"fullNameTh,omitempty"`
	Role       string `json:"role" validate:"required"`
	CustomRole string `json:"customRole,omitempty"`
	Age        string `json:"age,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	SchoolName string `json:"schoolName,omitempty"`
	StudentID  string `json:"studentId,omitempty"`
}

// Agreements are the four consent checkboxes. All must be true before a
// submission may be attempted.
type Agreements struct {
	Copyright     bool `json:"copyright" bson:"copyright"`
	Terms         bool `json:"terms" bson:"terms"`
	Promotional   bool `json:"promotional" bson:"promotional"`
	FinalDecision bool `json:"finalDecision" bson:"finalDecision"`
}

func (a Agreements) AllAccepted() bool {
	return a.Copyright && a.Terms && a.Promotional && a.FinalDecision
}

// SubmissionDraft is the client-held application state before persistence.
// Numeric inputs (duration, ages) arrive as strings from the form layer and
// are parsed during normalization.
type SubmissionDraft struct {
	Category Category
	UserID   string

	FilmTitle           string
	FilmTitleTh         string
	Genres              []string
	Format              FilmFormat
	Duration            string
	Synopsis            string
	ChiangmaiConnection string

	// Nationality is the submitter's country; "Thailand" switches on the
	// Thai-language field requirements.
	Nationality string

	// Submitter/director block. The world track labels this person the
	// director; the field set is identical.
	SubmitterName       string
	SubmitterNameTh     string
	SubmitterAge        string
	SubmitterPhone      string
	SubmitterEmail      string
	SubmitterRole       string
	SubmitterCustomRole string

	// Youth extras.
	SchoolName string
	StudentID  string

	// Future extras.
	UniversityName string
	Faculty        string
	UniversityID   string

	CrewMembers []CrewMember

	FilmFile   *FileHandle
	PosterFile *FileHandle
	ProofFile  *FileHandle

	Agreements Agreements
}

// IsThaiNationality reports whether Thai-language fields are required.
func (d *SubmissionDraft) IsThaiNationality() bool {
	return d.Nationality == "Thailand"
}

// Files returns the three file handles keyed by role. Handles may be nil
// when the client omitted a file; validation rejects such drafts.
func (d *SubmissionDraft) Files() map[FileRole]*FileHandle {
	return map[FileRole]*FileHandle{
		RoleFilm:   d.FilmFile,
		RolePoster: d.PosterFile,
		RoleProof:  d.ProofFile,
	}
}
