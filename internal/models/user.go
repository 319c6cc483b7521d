package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBio is assigned to accounts that register without a bio.
const DefaultBio = "Hey there, I am using Sierra"

// Contact is a saved phone-book entry owned by a user.
type Contact struct {
	Phone       string `json:"phone"`
	DisplayName string `json:"displayName"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Phone          string    `json:"phone"`
	HashedPassword string    `json:"-"`
	Bio            string    `json:"bio,omitempty"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	PushTokens     []string  `json:"-"`
	Contacts       []Contact `json:"contacts,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
