package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole distinguishes the three parties in a Conversation.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// SourceRef is an immutable snapshot of a Document cited by an assistant
// Message: id, score, and content-type tag captured at answer time so a
// later Document mutation cannot corrupt conversation history.
type SourceRef struct {
	DocumentID  uuid.UUID
	Score       float64
	ContentType DocumentContentType
	Excerpt     string
}

// Message belongs to a Conversation and is immutable once created.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           MessageRole
	Content        string

	// Populated only for Role == MessageRoleAssistant.
	ModelID          string
	InputTokens      int
	OutputTokens     int
	CostUSD          float64
	Sources          []SourceRef

	CreatedAt time.Time
}

// ConversationTotals aggregates token/cost usage across a Conversation's
// assistant messages.
type ConversationTotals struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Conversation is tenant-scoped and optionally tied to a User; anonymous
// conversations are allowed.
type Conversation struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    *uuid.UUID
	Messages  []Message
	Totals    ConversationTotals
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddAssistantMessage appends an assistant Message and folds its usage
// into Totals. It is the only supported way to add an assistant message
// so Totals can never drift from the message list.
func (c *Conversation) AddAssistantMessage(m Message) {
	m.Role = MessageRoleAssistant
	c.Messages = append(c.Messages, m)
	c.Totals.InputTokens += m.InputTokens
	c.Totals.OutputTokens += m.OutputTokens
	c.Totals.CostUSD += m.CostUSD
	c.UpdatedAt = m.CreatedAt
}

// AddUserMessage appends a user-authored Message.
func (c *Conversation) AddUserMessage(m Message) {
	m.Role = MessageRoleUser
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = m.CreatedAt
}
