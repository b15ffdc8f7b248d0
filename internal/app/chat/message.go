package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"anonchat/internal/app/user"
	"anonchat/internal/pkg/randx"
)

// MessageType identifies the kind of frame exchanged over the websocket.
type MessageType string

const (
	// Relayed between partners.
	TypeText        MessageType = "TEXT"
	TypeAttachments MessageType = "ATTACHMENTS"

	// Lifecycle events pushed by the server.
	TypePartnerFound MessageType = "PARTNER_FOUND"
	TypePartnerLeft  MessageType = "PARTNER_LEFT"

	// Connection housekeeping.
	TypeError       MessageType = "ERROR"
	TypeConfirm     MessageType = "CONFIRM"
	TypeTokenUpdate MessageType = "TOKEN_UPDATE"
	TypeInitData    MessageType = "INIT_DATA"
)

// Message is the envelope of every frame the server writes. It never carries the identity of
// the sender: a relayed message reaches the partner exactly as anonymous as the partner itself.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewMessage builds a message with a fresh id and the current time in milliseconds.
func NewMessage(msgType MessageType, payload any) (Message, error) {
	msg := Message{
		ID:        randx.MessageID(),
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		msg.Payload = raw
	}

	return msg, nil
}

// TextPayload is the body of a TEXT message.
type TextPayload struct {
	Content string `json:"content"`
}

// AttachmentsPayload is the body of an ATTACHMENTS message.
type AttachmentsPayload struct {
	Attachments []Attachment `json:"attachments"`
	Description string       `json:"description,omitempty"`
}

// ErrorPayload is the body of an ERROR message.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TokenUpdatePayload carries a refreshed identity token.
type TokenUpdatePayload struct {
	Token string `json:"token"`
}

// ConfirmPayload acknowledges a relayed message back to its sender.
type ConfirmPayload struct {
	TempID    string `json:"tempId"`
	MessageID string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// InitDataPayload is sent once per connection so a client that missed a lifecycle event
// while offline can resynchronise from the directory.
type InitDataPayload struct {
	UserID      user.ID    `json:"userId"`
	DisplayName string     `json:"displayName,omitempty"`
	State       user.State `json:"state"`
	HasPartner  bool       `json:"hasPartner"`
}

// NewInitData derives the INIT_DATA payload from a directory record.
func NewInitData(u user.User) InitDataPayload {
	return InitDataPayload{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		State:       u.State,
		HasPartner:  u.IsPaired(),
	}
}
