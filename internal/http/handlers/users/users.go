package users

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cifan-festival/submission-service/internal/mail"
	"github.com/cifan-festival/submission-service/internal/storage"
	userTypes "github.com/cifan-festival/submission-service/internal/types/users"
	"github.com/cifan-festival/submission-service/internal/utils/jwt"
	"github.com/cifan-festival/submission-service/internal/utils/password"
	"github.com/cifan-festival/submission-service/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

// SignUp handles user registration
// @Summary Register a new user
// @Description Register a new account and send the verification email
// @Tags users
// @Accept json
// @Produce json
// @Param user body userTypes.SignUpRequest true "User registration details"
// @Success 201 {object} map[string]string "User created successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 409 {object} response.Response "Email already registered"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /signup [post]
func SignUp(store storage.DocumentStore, mailer *mail.Mailer, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var signupReq userTypes.SignUpRequest

		err := json.NewDecoder(r.Body).Decode(&signupReq)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(signupReq)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		hashedPassword, err := password.HashPassword(signupReq.Password)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to hash password")))
			return
		}

		userID, err := store.CreateUser(r.Context(), signupReq.Email, hashedPassword)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateEmail) {
				response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		slog.Info("User created", slog.String("user_id", userID))

		verificationToken, err := jwt.CreateVerificationToken(userID, jwtSecret)
		if err == nil {
			if err := mailer.SendVerification(signupReq.Email, verificationToken); err != nil {
				slog.Error("Failed to send verification email",
					slog.String("user_id", userID),
					slog.String("error", err.Error()))
			}
		}

		response.WriteJSON(w, http.StatusCreated, map[string]string{
			"id": userID,
		})
	}
}

// Login handles user authentication
// @Summary Authenticate a user
// @Description Authenticate a user and return JWT token
// @Tags users
// @Accept json
// @Produce json
// @Param user body userTypes.SignInRequest true "User login details"
// @Success 200 {object} map[string]string "User authenticated successfully with token"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Router /login [post]
func Login(store storage.DocumentStore, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var signinReq userTypes.SignInRequest

		err := json.NewDecoder(r.Body).Decode(&signinReq)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(signinReq)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		user, err := store.UserByEmail(r.Context(), signinReq.Email)
		if err != nil {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid email or password")))
			return
		}

		if !password.CheckPasswordHash(signinReq.Password, user.PasswordHash) {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid email or password")))
			return
		}

		token, err := jwt.CreateToken(user.UID, user.EmailVerified, jwtSecret)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to generate token")))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]string{
			"user_id": user.UID,
			"token":   token,
		})
	}
}

// VerifyEmail marks the account as verified from the emailed link
// @Summary Verify an email address
// @Description Consume the verification token from the account email
// @Tags users
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} response.Response "Email verified"
// @Failure 400 {object} response.Response "Bad request"
// @Router /verify-email [get]
func VerifyEmail(store storage.DocumentStore, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("token is required")))
			return
		}

		userID, err := jwt.ParseVerificationToken(token, jwtSecret)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid or expired verification token")))
			return
		}

		if err := store.MarkEmailVerified(r.Context(), userID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("unknown user")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Email verified successfully", nil))
	}
}
