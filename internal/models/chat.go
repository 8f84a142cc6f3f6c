// Package models contains domain types for the PDF chat gateway.
package models

import "time"

// Role identifies who produced a chat turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// ChatTurn is one message in the conversation. Turns are never mutated after
// they are appended to a conversation.
type ChatTurn struct {
	Text   string    `json:"text" yaml:"text" msgpack:"text"`
	Role   Role      `json:"role" yaml:"role" msgpack:"role"`
	SentAt time.Time `json:"sentAt" yaml:"sent_at" msgpack:"sentAt"`
}

// NewUserTurn creates a user turn stamped with the current time.
func NewUserTurn(text string) ChatTurn {
	return ChatTurn{Text: text, Role: RoleUser, SentAt: time.Now()}
}

// NewBotTurn creates a bot turn stamped with the current time.
func NewBotTurn(text string) ChatTurn {
	return ChatTurn{Text: text, Role: RoleBot, SentAt: time.Now()}
}

// Transcript is the exportable form of a conversation.
type Transcript struct {
	SessionID  string     `json:"sessionId" yaml:"session_id" msgpack:"sessionId"`
	Selected   string     `json:"selected,omitempty" yaml:"selected,omitempty" msgpack:"selected,omitempty"`
	ExportedAt time.Time  `json:"exportedAt" yaml:"exported_at" msgpack:"exportedAt"`
	Turns      []ChatTurn `json:"turns" yaml:"turns" msgpack:"turns"`
}
