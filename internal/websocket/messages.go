package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeReservationApproved    MessageType = "reservation.approved"
	TypeReservationDenied      MessageType = "reservation.denied"
	TypeReservationCancelled   MessageType = "reservation.cancelled"
	TypeRecurringSyncCompleted MessageType = "recurring.sync_completed"
	TypeRecurringSyncError     MessageType = "recurring.sync_error"
	TypeGuestCleanupCompleted  MessageType = "guest.cleanup_completed"
	TypeNotification           MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReservationPayload is the payload for reservation lifecycle events.
type ReservationPayload struct {
	RsvNo    string `json:"rsv_no"`
	RsvTime  string `json:"rsv_time"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Detail   string `json:"detail,omitempty"`
}

// RecurringSyncPayload is the payload for recurring.sync_completed events.
type RecurringSyncPayload struct {
	Status         string `json:"status"`
	UsersProcessed int    `json:"users_processed"`
	SlotsExpanded  int    `json:"slots_expanded"`
	ExceptionsSet  int    `json:"exceptions_set"`
}

// RecurringSyncErrorPayload is the payload for recurring.sync_error events.
type RecurringSyncErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GuestCleanupPayload is the payload for guest.cleanup_completed events.
type GuestCleanupPayload struct {
	DeletedCount int `json:"deleted_count"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
