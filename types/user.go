package types

import "time"

// Default profile values applied at registration when the client does not
// supply them.
const (
	DefaultPhoto = "https://i.ibb.co/4pDNDk1/avatar.png"
	DefaultPhone = "+1"
	DefaultBio   = "bio"
)

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Photo is the URL of the user's avatar image.
	Photo string `json:"photo" db:"photo"`

	// Phone is the user's contact phone number.
	Phone string `json:"phone" db:"phone"`

	// Bio is a short free-form description, at most 250 characters.
	Bio string `json:"bio" db:"bio"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
