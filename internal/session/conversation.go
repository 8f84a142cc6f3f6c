package session

import "github.com/pdfchat/backend/internal/models"

// Conversation is the append-only log of chat turns for one session.
type Conversation struct {
	turns []models.ChatTurn
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds turn at the end.
func (c *Conversation) Append(turn models.ChatTurn) {
	c.turns = append(c.turns, turn)
}

// Turns returns a copy of the log, oldest first.
func (c *Conversation) Turns() []models.ChatTurn {
	return append(make([]models.ChatTurn, 0, len(c.turns)), c.turns...)
}

func (c *Conversation) Len() int { return len(c.turns) }

// IsEmpty decides whether the welcome panel is shown.
func (c *Conversation) IsEmpty() bool { return len(c.turns) == 0 }

// Reset empties the log. Only "new chat" does this.
func (c *Conversation) Reset() {
	c.turns = nil
}
