package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cifan-festival/submission-service/internal/types"
	"github.com/go-playground/validator/v10"
)

// FileRule is a declarative size/MIME constraint for one file role.
type FileRule struct {
	MaxSize      int64
	AllowedTypes []string
}

const (
	megabyte = 1 << 20
)

// FileRules keyed by logical role. The upload adapter relies on these
// having been checked and does not re-validate.
var FileRules = map[types.FileRole]FileRule{
	types.RoleFilm: {
		MaxSize:      500 * megabyte,
		AllowedTypes: []string{"video/mp4", "video/quicktime"},
	},
	types.RolePoster: {
		MaxSize:      10 * megabyte,
		AllowedTypes: []string{"image/jpeg", "image/png"},
	},
	types.RoleProof: {
		MaxSize:      5 * megabyte,
		AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png"},
	},
}

// ProfilePhotoRule is structurally identical to the submission rules but
// belongs to the profile collaborator.
var ProfilePhotoRule = FileRule{
	MaxSize:      5 * megabyte,
	AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
}

// Check returns a human-readable reason when the file violates the rule.
func (r FileRule) Check(name string, size int64, contentType string) error {
	if size > r.MaxSize {
		return fmt.Errorf("file %q exceeds the maximum size of %dMB", name, r.MaxSize/megabyte)
	}
	for _, allowed := range r.AllowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("file type %q is not allowed (expected one of %s)",
		contentType, strings.Join(r.AllowedTypes, ", "))
}

// CheckFile validates a file handle against the rule for its role.
func CheckFile(role types.FileRole, f *types.FileHandle) error {
	if f == nil {
		return fmt.Errorf("%s file is required", role)
	}
	rule, ok := FileRules[role]
	if !ok {
		return fmt.Errorf("no validation rule for role %q", role)
	}
	return rule.Check(f.Name, f.Size, f.ContentType)
}

// AgeRange returns the inclusive submitter age bounds for a category.
func AgeRange(c types.Category) (min, max int) {
	switch c {
	case types.CategoryYouth:
		return 12, 18
	case types.CategoryFuture:
		return 18, 25
	default:
		return 18, 100
	}
}

var validate = validator.New()

// ValidEmail reports whether s is a well-formed email address.
func ValidEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

const (
	reasonRequired      = "required"
	reasonInvalidEmail  = "invalid email address"
	reasonInvalidNumber = "must be a valid number"
)

// CheckDraft runs every field and file rule for the draft's category and
// nationality. The returned map is keyed by field name; an empty map means
// the draft is valid. CheckDraft performs no I/O and never partially
// succeeds: a draft either passes every rule or the full error map is
// returned.
func CheckDraft(d *types.SubmissionDraft) map[string]string {
	errs := make(map[string]string)

	if d.UserID == "" {
		errs["userId"] = "user authentication required"
	}
	if !d.Category.Valid() {
		errs["category"] = "unknown competition category"
		return errs
	}

	thai := d.IsThaiNationality()

	// Film block.
	requireText(errs, "filmTitle", d.FilmTitle)
	if thai {
		requireText(errs, "filmTitleTh", d.FilmTitleTh)
	}
	if len(d.Genres) == 0 {
		errs["genres"] = reasonRequired
	}
	if d.Format != types.FormatLiveAction && d.Format != types.FormatAnimation {
		errs["format"] = reasonRequired
	}
	if strings.TrimSpace(d.Duration) == "" {
		errs["duration"] = reasonRequired
	} else if n, err := strconv.Atoi(d.Duration); err != nil || n <= 0 {
		errs["duration"] = reasonInvalidNumber
	}
	requireText(errs, "synopsis", d.Synopsis)
	requireText(errs, "chiangmaiConnection", d.ChiangmaiConnection)

	// Submitter/director block.
	requireText(errs, "submitterName", d.SubmitterName)
	if thai {
		requireText(errs, "submitterNameTh", d.SubmitterNameTh)
	}
	if strings.TrimSpace(d.SubmitterAge) == "" {
		errs["submitterAge"] = reasonRequired
	} else if age, err := strconv.Atoi(d.SubmitterAge); err != nil {
		errs["submitterAge"] = reasonInvalidNumber
	} else if min, max := AgeRange(d.Category); age < min || age > max {
		errs["submitterAge"] = fmt.Sprintf("age must be between %d and %d for the %s category", min, max, d.Category)
	}
	requireText(errs, "submitterPhone", d.SubmitterPhone)
	if strings.TrimSpace(d.SubmitterEmail) == "" {
		errs["submitterEmail"] = reasonRequired
	} else if !ValidEmail(d.SubmitterEmail) {
		errs["submitterEmail"] = reasonInvalidEmail
	}
	requireText(errs, "submitterRole", d.SubmitterRole)
	if d.SubmitterRole == types.CrewRoleOther && strings.TrimSpace(d.SubmitterCustomRole) == "" {
		errs["submitterCustomRole"] = reasonRequired
	}

	// Category extras.
	switch d.Category {
	case types.CategoryYouth:
		requireText(errs, "schoolName", d.SchoolName)
		requireText(errs, "studentId", d.StudentID)
	case types.CategoryFuture:
		requireText(errs, "universityName", d.UniversityName)
		requireText(errs, "faculty", d.Faculty)
		requireText(errs, "universityId", d.UniversityID)
	}

	// Crew roster.
	for i, m := range d.CrewMembers {
		if strings.TrimSpace(m.FullName) == "" {
			errs[fmt.Sprintf("crewMembers[%d].fullName", i)] = reasonRequired
		}
		if strings.TrimSpace(m.Role) == "" {
			errs[fmt.Sprintf("crewMembers[%d].role", i)] = reasonRequired
		} else if m.Role == types.CrewRoleOther && strings.TrimSpace(m.CustomRole) == "" {
			errs[fmt.Sprintf("crewMembers[%d].customRole", i)] = reasonRequired
		}
		if m.Age != "" {
			if _, err := strconv.Atoi(m.Age); err != nil {
				errs[fmt.Sprintf("crewMembers[%d].age", i)] = reasonInvalidNumber
			}
		}
		if m.Email != "" && !ValidEmail(m.Email) {
			errs[fmt.Sprintf("crewMembers[%d].email", i)] = reasonInvalidEmail
		}
	}

	// Files.
	for role, f := range map[types.FileRole]*types.FileHandle{
		types.RoleFilm:   d.FilmFile,
		types.RolePoster: d.PosterFile,
		types.RoleProof:  d.ProofFile,
	} {
		if err := CheckFile(role, f); err != nil {
			errs[string(role)+"File"] = err.Error()
		}
	}

	if !d.Agreements.AllAccepted() {
		errs["agreements"] = "all four agreements must be accepted"
	}

	return errs
}

func requireText(errs map[string]string, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = reasonRequired
	}
}
