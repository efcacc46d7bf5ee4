// Package auth mints and verifies session JWTs and generates the
// password-reset token material.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the lifetime of a session token and its cookie.
const SessionTTL = 24 * time.Hour

const resetSecretBytes = 32

// ErrInvalidSession is returned when a session token fails verification,
// whether the signature is wrong or the token has expired.
var ErrInvalidSession = errors.New("invalid session")

// IssueSession signs an HS256 JWT whose subject is the user id.
func IssueSession(userID int, secret []byte) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifySession validates a session token and returns the user id it
// encodes.
func VerifySession(tokenString string, secret []byte) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidSession
	}

	userID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || userID < 1 {
		return 0, ErrInvalidSession
	}
	return userID, nil
}

// NewResetToken builds the client-facing reset token: 32 bytes of
// cryptographic randomness hex-encoded, with the user id appended. The
// suffix only disambiguates; all entropy lives in the random prefix.
func NewResetToken(userID int) (string, error) {
	buf := make([]byte, resetSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + strconv.Itoa(userID), nil
}

// HashResetToken computes the hex-encoded SHA-256 digest stored in place
// of the client-facing token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
