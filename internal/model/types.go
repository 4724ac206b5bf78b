package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. Email is stored lowercased and is
// unique across the system.
type User struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// OtpCode is a password-reset code. Only the salted hash of the code is
// stored; the plaintext goes out by email and is never persisted.
type OtpCode struct {
	ID        uuid.UUID
	Email     string
	CodeHash  []byte
	Used      bool
	CreatedAt time.Time
}

// Participant is the public slice of a user embedded in message payloads.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
}

// Message is a direct message between two users, with both sides expanded
// for API and broadcast payloads.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	Text      string      `json:"text"`
	From      Participant `json:"from"`
	To        Participant `json:"to"`
	CreatedAt time.Time   `json:"createdAt"`
}
