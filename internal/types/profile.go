package types

import "time"

// UserProfile is the profile document keyed by user id. A submission cannot
// start until the owning profile is complete.
type UserProfile struct {
	UID           string    `json:"uid" bson:"_id"`
	Email         string    `json:"email" bson:"email"`
	EmailVerified bool      `json:"emailVerified" bson:"emailVerified"`
	PhotoURL      string    `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	PhotoPath     string    `json:"photoPath,omitempty" bson:"photoPath,omitempty"`
	FullNameEN    string    `json:"fullNameEn" bson:"fullNameEn"`
	FullNameTH    string    `json:"fullNameTh,omitempty" bson:"fullNameTh,omitempty"`
	BirthDate     time.Time `json:"birthDate" bson:"birthDate"`
	Age           int       `json:"age" bson:"age"`
	PhoneNumber   string    `json:"phoneNumber" bson:"phoneNumber"`
	IsComplete    bool      `json:"isProfileComplete" bson:"isProfileComplete"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ProfileForm is the client-supplied profile payload.
type ProfileForm struct {
	FullNameEN  string `json:"full_name_en" validate:"required"`
	FullNameTH  string `json:"full_name_th"`
	BirthDate   string `json:"birth_date" validate:"required"` // ISO date, e.g. 2006-01-02
	PhoneNumber string `json:"phone_number" validate:"required"`
}
