package types

import "time"

// User represents a registered account.
type User struct {
	// Username is the unique login name chosen by the user.
	// It is immutable once the account exists.
	Username string `json:"username" db:"username"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// Phone is the user's contact phone number.
	Phone string `json:"phone" db:"phone"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// JoinedAt is the timestamp when the account was created.
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	// LastLoginAt is the timestamp of the most recent successful login.
	LastLoginAt time.Time `json:"last_login_at" db:"last_login_at"`
}

// UserProfile is the subset of account fields shown to other users.
// It is the shape nested into message payloads and the users listing.
type UserProfile struct {
	Username  string `json:"username" db:"username"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Phone     string `json:"phone" db:"phone"`
}

// Profile returns the public subset of the user's fields.
func (u User) Profile() UserProfile {
	return UserProfile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
