package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionTTL      = 24 * time.Hour
	verificationTTL = 48 * time.Hour

	purposeSession      = "session"
	purposeVerification = "email-verification"
)

// Claims carried in a session token.
type Claims struct {
	UserID        string
	EmailVerified bool
}

// CreateToken issues a session token for the user.
func CreateToken(userID string, emailVerified bool, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            userID,
		"email_verified": emailVerified,
		"purpose":        purposeSession,
		"exp":            time.Now().Add(sessionTTL).Unix(),
		"iat":            time.Now().Unix(),
	})

	return token.SignedString([]byte(secret))
}

// CreateVerificationToken issues the token embedded in the email
// verification link.
func CreateVerificationToken(userID string, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     userID,
		"purpose": purposeVerification,
		"exp":     time.Now().Add(verificationTTL).Unix(),
		"iat":     time.Now().Unix(),
	})

	return token.SignedString([]byte(secret))
}

// ParseToken validates a session token and extracts its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims, err := parse(tokenString, secret, purposeSession)
	if err != nil {
		return nil, err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("token missing subject")
	}

	verified, _ := claims["email_verified"].(bool)

	return &Claims{UserID: sub, EmailVerified: verified}, nil
}

// ParseVerificationToken validates an email verification token and returns
// the user id it was issued for.
func ParseVerificationToken(tokenString, secret string) (string, error) {
	claims, err := parse(tokenString, secret, purposeVerification)
	if err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token missing subject")
	}

	return sub, nil
}

func parse(tokenString, secret, purpose string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if p, _ := claims["purpose"].(string); p != purpose {
		return nil, fmt.Errorf("token purpose %q is not valid here", p)
	}

	return claims, nil
}
