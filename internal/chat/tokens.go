package chat

import "strings"

// Completion budgets by message shape.
const (
	tokensComplexMultiPart = 800
	tokensComplex          = 600
	tokensMultiPart        = 500
	tokensDefault          = 400
)

var complexTopics = []string{
	"safety", "technical", "scientific", "educational", "temperature",
	"composition", "emergency", "evacuation", "group booking",
}

// MaxTokens sizes the completion for a message: complex topics and
// multi-part questions get a larger budget.
func MaxTokens(message string) int {
	lower := strings.ToLower(message)

	complex := false
	for _, topic := range complexTopics {
		if strings.Contains(lower, topic) {
			complex = true
			break
		}
	}
	multiPart := strings.Contains(lower, " and ") || strings.Count(lower, "?") > 1

	switch {
	case complex && multiPart:
		return tokensComplexMultiPart
	case complex:
		return tokensComplex
	case multiPart:
		return tokensMultiPart
	default:
		return tokensDefault
	}
}
