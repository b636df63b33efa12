package types

import "time"

// FileMetadata describes a durably stored upload. Created only after the
// blob store confirms the write; owned by the submission document once
// persisted.
type FileMetadata struct {
	FileName    string    `json:"fileName" bson:"fileName"`
	Size        int64     `json:"size" bson:"size"`
	ContentType string    `json:"contentType" bson:"contentType"`
	StoragePath string    `json:"storagePath" bson:"storagePath"`
	URL         string    `json:"url" bson:"url"`
	UploadedAt  time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// SubmissionFiles keys the three uploads by role.
type SubmissionFiles struct {
	FilmFile   FileMetadata `json:"filmFile" bson:"filmFile"`
	PosterFile FileMetadata `json:"posterFile" bson:"posterFile"`
	ProofFile  FileMetadata `json:"proofFile" bson:"proofFile"`
}

// CrewMemberDoc is the persisted crew entry. Pointer fields are written as
// explicit nulls so consumers can rely on key presence.
type CrewMemberDoc struct {
	FullName   string  `json:"fullName" bson:"fullName"`
	FullNameTh *string `json:"fullNameTh" bson:"fullNameTh"`
	Role       string  `json:"role" bson:"role"`
	CustomRole *string `json:"customRole" bson:"customRole"`
	Age        *int    `json:"age" bson:"age"`
	Phone      *string `json:"phone" bson:"phone"`
	Email      *string `json:"email" bson:"email"`
	SchoolName *string `json:"schoolName" bson:"schoolName"`
	StudentID  *string `json:"studentId" bson:"studentId"`
}

// SubmissionDocument is the normalized shape persisted to the submissions
// collection. The three category variants merge into this one schema;
// inapplicable fields are null rather than absent.
type SubmissionDocument struct {
	ID            string   `json:"id" bson:"_id,omitempty"`
	UserID        string   `json:"userId" bson:"userId"`
	ApplicationID string   `json:"applicationId" bson:"applicationId"`
	Category      Category `json:"category" bson:"category"`
	Status        Status   `json:"status" bson:"status"`

	SubmittedAt  time.Time `json:"submittedAt" bson:"submittedAt"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	LastModified time.Time `json:"lastModified" bson:"lastModified"`

	FilmTitle           string     `json:"filmTitle" bson:"filmTitle"`
	FilmTitleTh         *string    `json:"filmTitleTh" bson:"filmTitleTh"`
	Genres              []string   `json:"genres" bson:"genres"`
	Format              FilmFormat `json:"format" bson:"format"`
	Duration            int        `json:"duration" bson:"duration"`
	Synopsis            string     `json:"synopsis" bson:"synopsis"`
	ChiangmaiConnection string     `json:"chiangmaiConnection" bson:"chiangmaiConnection"`

	Nationality *string `json:"nationality" bson:"nationality"`

	// Submitter block, filled for youth and future.
	SubmitterName       *string `json:"submitterName" bson:"submitterName"`
	SubmitterNameTh     *string `json:"submitterNameTh" bson:"submitterNameTh"`
	SubmitterAge        *int    `json:"submitterAge" bson:"submitterAge"`
	SubmitterPhone      *string `json:"submitterPhone" bson:"submitterPhone"`
	SubmitterEmail      *string `json:"submitterEmail" bson:"submitterEmail"`
	SubmitterRole       *string `json:"submitterRole" bson:"submitterRole"`
	SubmitterCustomRole *string `json:"submitterCustomRole" bson:"submitterCustomRole"`

	// Director block, filled for world.
	DirectorName       *string `json:"directorName" bson:"directorName"`
	DirectorNameTh     *string `json:"directorNameTh" bson:"directorNameTh"`
	DirectorAge        *int    `json:"directorAge" bson:"directorAge"`
	DirectorPhone      *string `json:"directorPhone" bson:"directorPhone"`
	DirectorEmail      *string `json:"directorEmail" bson:"directorEmail"`
	DirectorRole       *string `json:"directorRole" bson:"directorRole"`
	DirectorCustomRole *string `json:"directorCustomRole" bson:"directorCustomRole"`

	// Youth extras.
	SchoolName *string `json:"schoolName" bson:"schoolName"`
	StudentID  *string `json:"studentId" bson:"studentId"`

	// Future extras.
	UniversityName *string `json:"universityName" bson:"universityName"`
	Faculty        *string `json:"faculty" bson:"faculty"`
	UniversityID   *string `json:"universityId" bson:"universityId"`

	CrewMembers []CrewMemberDoc `json:"crewMembers" bson:"crewMembers"`

	Files SubmissionFiles `json:"files" bson:"files"`

	Agreements Agreements `json:"agreements" bson:"agreements"`
}
