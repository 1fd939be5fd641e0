package chat

import (
	"strings"
)

var greetingResponses = []string{
	"Hello! Would you like to know about our unique lava demonstrations, experience packages, or how to get here?",
	"Welcome! I can help you learn about our live lava shows, educational content, or assist with booking. What interests you?",
	"Hi there! I'd be happy to tell you about experiencing real molten lava up close. What would you like to know?",
	"Welcome to Lava Show! Would you like to learn about our experiences, our safety protocols, or how to book?",
}

var greetings = map[string]bool{
	"hi":             true,
	"hello":          true,
	"hey":            true,
	"good morning":   true,
	"good afternoon": true,
	"good evening":   true,
}

// IsGreeting reports whether message is a bare greeting. Trailing
// punctuation is ignored.
func IsGreeting(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	m = strings.TrimRight(m, "!.?, ")
	return greetings[m]
}

// greeting picks one canned greeting using intn.
func greeting(intn func(int) int) string {
	i := intn(len(greetingResponses))
	if i < 0 || i >= len(greetingResponses) {
		i = 0
	}
	return greetingResponses[i]
}
