package types

import "time"

// Message is a single text message exchanged between two users.
type Message struct {
	// ID is the unique identifier assigned at creation.
	ID int64 `json:"id" db:"id"`

	// FromUsername is the sender's username.
	FromUsername string `json:"from_username" db:"from_username"`

	// ToUsername is the recipient's username.
	ToUsername string `json:"to_username" db:"to_username"`

	// Body is the message text.
	Body string `json:"body" db:"body"`

	// SentAt is set at creation and never changes.
	SentAt time.Time `json:"sent_at" db:"sent_at"`

	// ReadAt is nil until the recipient marks the message read.
	// The transition happens at most once and is never reversed.
	ReadAt *time.Time `json:"read_at" db:"read_at"`
}

// MessageDetail is a message with participant profiles joined in.
// Single-message reads carry both profiles; the per-user listings carry
// only the counterpart (to_user for sent messages, from_user for received).
type MessageDetail struct {
	ID       int64        `json:"id"`
	Body     string       `json:"body"`
	SentAt   time.Time    `json:"sent_at"`
	ReadAt   *time.Time   `json:"read_at"`
	FromUser *UserProfile `json:"from_user,omitempty"`
	ToUser   *UserProfile `json:"to_user,omitempty"`
}

// Participant reports whether username is the sender or the recipient.
func (m MessageDetail) Participant(username string) bool {
	if m.FromUser != nil && m.FromUser.Username == username {
		return true
	}
	return m.ToUser != nil && m.ToUser.Username == username
}

// ReadReceipt is the result of marking a message read.
type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}
