package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrEmptyMessage     = errors.New("message content is required")
	ErrMissingRecipient = errors.New("recipient is required for personal chats")
)

// ChatMessage is one entry in a project's team or personal stream. Messages
// are append-only; nothing in the backend edits or deletes them.
type ChatMessage struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Content    string              `bson:"content" json:"content"`
	Sender     primitive.ObjectID  `bson:"sender" json:"sender"`
	Project    primitive.ObjectID  `bson:"project" json:"project"`
	IsTeamChat bool                `bson:"isTeamChat" json:"isTeamChat"`
	Recipient  *primitive.ObjectID `bson:"recipient,omitempty" json:"recipient,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`

	// Display fields populated from the users collection before the message
	// is returned or broadcast. Never persisted.
	SenderName    string `bson:"-" json:"senderName,omitempty"`
	RecipientName string `bson:"-" json:"recipientName,omitempty"`
}

// Validate enforces the persist-time invariants: trimmed non-empty content
// and a recipient on every personal message.
func (m *ChatMessage) Validate() error {
	m.Content = strings.TrimSpace(m.Content)
	if m.Content == "" {
		return ErrEmptyMessage
	}
	if !m.IsTeamChat && m.Recipient == nil {
		return ErrMissingRecipient
	}
	return nil
}
