package types

import (
	"encoding/json"
	"time"
)

// ParticipantRole identifies a user's role inside a group conversation.
type ParticipantRole string

const (
	RoleMember ParticipantRole = "member"
	RoleAdmin  ParticipantRole = "admin"
)

// Participant is a lightweight reference to a conversation member.
type Participant struct {
	UserID string          `json:"user_id"`
	Role   ParticipantRole `json:"role"`
}

// ParticipantInfo is the directory record for a company user.
// Sourced from the data service and read-only on the client.
type ParticipantInfo struct {
	UserID   string          `json:"user_id"`
	FullName string          `json:"full_name"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Role     ParticipantRole `json:"role"`
}

// Conversation is a 1:1 or group messaging thread.
// Exactly one of OtherUser (1:1) or IsGroup holds; Validate enforces it.
type Conversation struct {
	ID            string        `json:"id"`
	IsGroup       bool          `json:"is_group"`
	Name          string        `json:"name,omitempty"`
	OtherUser     *Participant  `json:"other_user,omitempty"`
	Participants  []Participant `json:"participants"`
	LastMessageAt time.Time     `json:"last_message_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at,omitempty"`

	// Unread counts pushed messages received while the conversation was
	// not active. Local bookkeeping, never sent over the wire.
	Unread int `json:"-"`
}

// IsAdmin reports whether userID holds the admin role in this conversation.
// Used to hide group-admin affordances; the data service remains the
// authority on whether an operation is actually permitted.
func (c *Conversation) IsAdmin(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID && p.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// DisplayName returns the group name, or the peer's user ID for 1:1 threads.
func (c *Conversation) DisplayName() string {
	if c.IsGroup {
		return c.Name
	}
	if c.OtherUser != nil {
		return c.OtherUser.UserID
	}
	return c.ID
}

// DeliveryState tracks the lifecycle of an optimistically appended message.
type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryConfirmed DeliveryState = "confirmed"
	DeliveryFailed    DeliveryState = "failed"
)

// Message is a single chat message. Immutable once delivered except for
// deletion, which removes the entry outright (tombstone, not edit).
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	SenderID       string           `json:"sender_id"`
	Text           string           `json:"text"`
	Attachments    []AttachmentMeta `json:"attachments,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`

	// Delivery is client-side state for the two-phase optimistic send.
	// Server-confirmed messages always carry DeliveryConfirmed.
	Delivery DeliveryState `json:"-"`
}

// AttachmentMeta describes an uploaded file referenced by a message.
type AttachmentMeta struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
}

// AttachmentUpload is the payload handed to the data service when
// uploading a file for the message currently being composed.
type AttachmentUpload struct {
	Filename string
	MIME     string
	Data     []byte
}

// SendMessageRequest is the outbound send payload. Text may be empty when
// at least one attachment ID is present.
type SendMessageRequest struct {
	ConversationID string   `json:"conversation_id"`
	RecipientID    string   `json:"recipient_id,omitempty"`
	Text           string   `json:"text"`
	AttachmentIDs  []string `json:"attachment_ids,omitempty"`
}

// Push event names delivered by the connection gateway.
const (
	EventChatMessage         = "chat_message"
	EventTyping              = "typing"
	EventConversationUpdated = "conversation_updated"
)

// Event is the envelope for every push event received from the gateway.
// Payload stays raw until the dispatcher routes it by name.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// TypingEvent signals that a user started or stopped composing a message.
type TypingEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
}

// ConversationUpdate is a partial conversation pushed on rename or
// membership changes. Nil fields were not touched by the update.
type ConversationUpdate struct {
	ID           string        `json:"id"`
	Name         *string       `json:"name,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}
