package models

import "encoding/json"

// Live-session event names. Outbound events are pushed to websocket clients;
// inbound events arrive on the client read pump.
const (
	EventNewMessage  = "new-message"
	EventMessageSent = "message-sent"
	EventTyping      = "typing"
	EventStopTyping  = "stop-typing"
	EventDeleteChat  = "delete-chat"

	EventSendMessage = "send-message"
	EventJoin        = "join"
	EventLeave       = "leave"
)

// Event is the JSON envelope for every live-session frame.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals an event envelope with the given payload.
func EncodeEvent(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: name, Data: data})
}

// NewMessagePayload is the data carried by a new-message event.
type NewMessagePayload struct {
	Message     *ResolvedMessage `json:"message"`
	UnreadCount int64            `json:"unreadCount"`
}

// MessageSentPayload confirms a persisted message back to the sender's
// live sessions.
type MessageSentPayload struct {
	Message *ResolvedMessage `json:"message"`
}

// TypingPayload is relayed verbatim between the two participants.
type TypingPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// DeleteChatPayload tells clients to evict cached history for a counterpart.
type DeleteChatPayload struct {
	UserA string `json:"userA"`
	UserB string `json:"userB"`
}

// SendMessageData is the inbound payload of a send-message live event.
type SendMessageData struct {
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
}

// TypingData is the inbound payload of typing and stop-typing live events.
type TypingData struct {
	ReceiverID string `json:"receiverId"`
}
