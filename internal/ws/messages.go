package ws

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	TypeSyncCompleted MessageType = "source.sync_completed"
	TypeSyncFailed    MessageType = "source.sync_failed"
	TypeNotification  MessageType = "notification"
)

// Message is the envelope for all server-to-client messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(t MessageType, payload any) Message {
	return Message{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON encodes the message for the wire.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncCompletedPayload reports a finished source sync.
type SyncCompletedPayload struct {
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
	ListingID   string `json:"listing_id"`
	EventsSaved int    `json:"events_saved"`
}

// SyncFailedPayload reports a failed source sync.
type SyncFailedPayload struct {
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	ListingID  string `json:"listing_id"`
	Message    string `json:"message"`
}

// NotificationPayload is a free-form user-facing notification.
type NotificationPayload struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
