package chat

import (
	"errors"
	"net"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/domain"
)

// Visitor-facing failure messages.
const (
	MessageRateLimited     = "I'm experiencing high traffic. Please try again in a moment."
	MessageGeneral         = "I apologize, but I'm having trouble processing your request right now. Could you please try again?"
	MessageConnectionError = "I'm having trouble connecting. Please try again shortly."
)

// UserMessage maps a failed turn to the message shown to the visitor.
func UserMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindRateLimit:
		return MessageRateLimited
	case domain.KindTimeout:
		return MessageConnectionError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return MessageConnectionError
	}
	return MessageGeneral
}
