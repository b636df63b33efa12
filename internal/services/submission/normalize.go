package submission

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cifan-festival/submission-service/internal/types"
)

// normalize shapes a category-specific draft into the single persisted
// document schema. Inapplicable fields become explicit nulls so consumers
// can rely on key presence. Range checks belong to validation; normalize
// only asserts that numeric inputs parse, and refuses to write garbage
// when they do not.
func normalize(d *types.SubmissionDraft, files map[types.FileRole]types.FileMetadata, applicationID string, now time.Time) (*types.SubmissionDocument, error) {
	duration, err := parsePositiveInt("duration", d.Duration)
	if err != nil {
		return nil, err
	}
	age, err := parsePositiveInt("age", d.SubmitterAge)
	if err != nil {
		return nil, err
	}

	doc := &types.SubmissionDocument{
		UserID:        d.UserID,
		ApplicationID: applicationID,
		Category:      d.Category,
		Status:        types.StatusSubmitted,

		SubmittedAt:  now,
		CreatedAt:    now,
		LastModified: now,

		FilmTitle:           d.FilmTitle,
		FilmTitleTh:         optStr(d.FilmTitleTh),
		Genres:              d.Genres,
		Format:              d.Format,
		Duration:            duration,
		Synopsis:            d.Synopsis,
		ChiangmaiConnection: d.ChiangmaiConnection,

		Files: types.SubmissionFiles{
			FilmFile:   files[types.RoleFilm],
			PosterFile: files[types.RolePoster],
			ProofFile:  files[types.RoleProof],
		},

		Agreements: d.Agreements,
	}

	world := d.Category == types.CategoryWorld

	if world {
		doc.DirectorName = optStr(d.SubmitterName)
		doc.DirectorNameTh = optStr(d.SubmitterNameTh)
		doc.DirectorAge = &age
		doc.DirectorPhone = optStr(d.SubmitterPhone)
		doc.DirectorEmail = optStr(d.SubmitterEmail)
		doc.DirectorRole = optStr(d.SubmitterRole)
		doc.DirectorCustomRole = optStr(d.SubmitterCustomRole)
	} else {
		nationality := d.Nationality
		if nationality == "" {
			nationality = "International"
		}
		doc.Nationality = &nationality

		doc.SubmitterName = optStr(d.SubmitterName)
		doc.SubmitterNameTh = optStr(d.SubmitterNameTh)
		doc.SubmitterAge = &age
		doc.SubmitterPhone = optStr(d.SubmitterPhone)
		doc.SubmitterEmail = optStr(d.SubmitterEmail)
		doc.SubmitterRole = optStr(d.SubmitterRole)
		doc.SubmitterCustomRole = optStr(d.SubmitterCustomRole)
	}

	switch d.Category {
	case types.CategoryYouth:
		doc.SchoolName = optStr(d.SchoolName)
		doc.StudentID = optStr(d.StudentID)
	case types.CategoryFuture:
		doc.UniversityName = optStr(d.UniversityName)
		doc.Faculty = optStr(d.Faculty)
		doc.UniversityID = optStr(d.UniversityID)
	}

	doc.CrewMembers = make([]types.CrewMemberDoc, 0, len(d.CrewMembers))
	for _, m := range d.CrewMembers {
		member := types.CrewMemberDoc{
			FullName:   m.FullName,
			FullNameTh: optStr(m.FullNameTh),
			Role:       m.Role,
			CustomRole: optStr(m.CustomRole),
			Phone:      optStr(m.Phone),
			Email:      optStr(m.Email),
		}

		if m.Age != "" {
			memberAge, err := parsePositiveInt("crew member age", m.Age)
			if err != nil {
				return nil, err
			}
			member.Age = &memberAge
		}

		// School fields never apply to the world track, regardless of
		// what the client sent.
		if !world {
			member.SchoolName = optStr(m.SchoolName)
			member.StudentID = optStr(m.StudentID)
		}

		doc.CrewMembers = append(doc.CrewMembers, member)
	}

	return doc, nil
}

func parsePositiveInt(field, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a valid number", field, value)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %d", field, n)
	}
	return n, nil
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
