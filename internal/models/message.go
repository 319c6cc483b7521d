package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind classifies an attached media reference.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// Message is a single directed message between two users. Immutable after
// creation except for the IsRead flag, which only transitions false to true.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	Body       string    `json:"body"`
	MediaURL   string    `json:"mediaUrl,omitempty"`
	MediaKind  MediaKind `json:"mediaKind,omitempty"`
	SentAt     time.Time `json:"sentAt"`
	IsRead     bool      `json:"isRead"`
}

// ResolvedMessage is a message joined with the sender's profile data,
// the shape delivered to live sessions and the push dispatcher.
type ResolvedMessage struct {
	Message
	SenderName   string `json:"senderName"`
	SenderAvatar string `json:"senderAvatar,omitempty"`
}

// ConversationSummary is the latest message exchanged with one counterpart
// plus the number of messages from that counterpart not yet read.
type ConversationSummary struct {
	Message     *Message `json:"message"`
	UnreadCount int64    `json:"unreadCount"`
}
