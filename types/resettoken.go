package types

import "time"

// ResetToken is a short-lived, single-use password reset ticket. Only the
// SHA-256 digest of the client-facing token is stored; the token itself is
// delivered to the user by email and never persisted.
type ResetToken struct {
	// ID is the unique identifier of the ticket.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the user the ticket is bound to. At
	// most one live ticket exists per user.
	UserID int `json:"user_id" db:"user_id"`

	// TokenHash is the hex-encoded SHA-256 digest of the client-facing
	// reset token.
	TokenHash string `json:"-" db:"token_hash"`

	// CreatedAt is the timestamp at which the ticket was issued.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// ExpiresAt is the timestamp after which the ticket no longer
	// resolves. Expiry is enforced at lookup time only.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
