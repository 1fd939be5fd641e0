// Package conversation holds per-session state: message history, inferred
// booking intent, accumulated interests and topic tracking.
package conversation

import (
	"time"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/retrieval"
)

// History bounds.
const (
	MaxMessages        = 10
	MaxTopicHistory    = 5
	MaxPreviousQueries = 3
)

// Package types.
const (
	PackageClassic = "classic"
	PackagePremium = "premium"
)

// Message is one entry of the chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BookingInfo holds booking details inferred from visitor messages. Each field
// is written at most once.
type BookingInfo struct {
	GroupSize       int    `json:"groupSize,omitempty"`
	PreferredDate   string `json:"preferredDate,omitempty"`
	PreferredTime   string `json:"preferredTime,omitempty"`
	PackageType     string `json:"packageType,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

// Partial reports whether enough is known to suggest booking options.
func (b BookingInfo) Partial() bool {
	return b.GroupSize > 0 || b.PreferredDate != "" || b.PackageType != ""
}

// UserPreferences accumulates across the session.
type UserPreferences struct {
	Interests       []string `json:"interests"`
	PreviousQueries []string `json:"previousQueries"`
}

// Topics tracks what the conversation has been about.
type Topics struct {
	CurrentTopic  string   `json:"currentTopic,omitempty"`
	TopicHistory  []string `json:"topicHistory"`
	LastQueryType string   `json:"lastQueryType,omitempty"`
}

// Context is the state of one conversation.
type Context struct {
	SessionID       string          `json:"sessionId"`
	Messages        []Message       `json:"messages"`
	BookingInfo     BookingInfo     `json:"bookingInfo"`
	UserPreferences UserPreferences `json:"userPreferences"`
	Conversation    Topics          `json:"conversation"`
	LastInteraction time.Time       `json:"lastInteraction"`
	CreatedAt       time.Time       `json:"createdAt"`

	OfferedFollowUp string `json:"offeredFollowUp,omitempty"`
	PendingFollowUp string `json:"pendingFollowUp,omitempty"`
	LastResponse    string `json:"lastResponse,omitempty"`
}

// New creates an empty context for a session.
func New(sessionID string, now time.Time) *Context {
	return &Context{
		SessionID:       sessionID,
		Messages:        []Message{},
		UserPreferences: UserPreferences{Interests: []string{}, PreviousQueries: []string{}},
		Conversation:    Topics{TopicHistory: []string{}},
		LastInteraction: now,
		CreatedAt:       now,
	}
}

// RecordExchange appends a user message and, when non-empty, the assistant
// reply, keeping only the most recent MaxMessages entries.
func (c *Context) RecordExchange(user, assistant string, now time.Time) {
	c.Messages = append(c.Messages, Message{Role: "user", Content: user})
	if assistant != "" {
		c.Messages = append(c.Messages, Message{Role: "assistant", Content: assistant})
		c.LastResponse = assistant
	}
	if over := len(c.Messages) - MaxMessages; over > 0 {
		c.Messages = append([]Message(nil), c.Messages[over:]...)
	}
	c.LastInteraction = now
}

// History returns up to n of the most recent messages.
func (c *Context) History(n int) []Message {
	if c == nil || n <= 0 {
		return nil
	}
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// HasInterest reports whether tag was already recorded.
func (c *Context) HasInterest(tag string) bool {
	for _, t := range c.UserPreferences.Interests {
		if t == tag {
			return true
		}
	}
	return false
}

// Signals projects the context onto what the knowledge matcher reads. A nil
// context yields nil.
func (c *Context) Signals() *retrieval.ContextSignals {
	if c == nil {
		return nil
	}
	interests := make([]string, len(c.UserPreferences.Interests))
	copy(interests, c.UserPreferences.Interests)
	return &retrieval.ContextSignals{
		LastQueryType:     c.Conversation.LastQueryType,
		HasPartialBooking: c.BookingInfo.Partial(),
		Interests:         interests,
	}
}

func pushFront(list []string, v string, limit int) []string {
	out := make([]string, 0, limit)
	out = append(out, v)
	for _, item := range list {
		if len(out) == limit {
			break
		}
		out = append(out, item)
	}
	return out
}

func pushBack(list []string, v string, limit int) []string {
	list = append(list, v)
	if over := len(list) - limit; over > 0 {
		list = append([]string(nil), list[over:]...)
	}
	return list
}
