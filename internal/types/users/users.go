package users

import "time"

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// User is the credential record in the users collection. Profile data lives
// separately in the profiles collection.
type User struct {
	UID           string    `json:"uid" bson:"_id"`
	Email         string    `json:"email" bson:"email"`
	PasswordHash  string    `json:"-" bson:"passwordHash"`
	EmailVerified bool      `json:"email_verified" bson:"emailVerified"`
	CreatedAt     time.Time `json:"created_at" bson:"createdAt"`
}
