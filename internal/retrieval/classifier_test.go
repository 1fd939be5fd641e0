package retrieval

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		message        string
		wantType       string
		wantConfidence float64
	}{
		{"price", QueryPricing, 1},
		{"hello", QueryGreeting, 1},
		{"what is the price", QueryPricing, 5.0 / 17.0},
		{"book a show", QueryBooking, 4.0 / 11.0}, // tie with experiences keeps the earlier rule
		{"xyzzy", QueryGeneral, 0},
		{"", QueryGeneral, 0},
		{"thank you", QuerySmalltalk, 1},
		{"is it safe for my kid", QueryChildren, 3.0 / 21.0},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := c.Classify(tt.message)
			assert.Equal(t, tt.wantType, got.Type)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
		})
	}
}

func TestClassifier_ConfidenceBounds(t *testing.T) {
	c := NewClassifier(nil)

	messages := []string{
		"how much is a ticket for two adults",
		"where is the reykjavik show",
		"Víkurbraut 5",
		"???",
		"LAVA",
		"a",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			got := c.Classify(msg)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
			if got.Confidence == 0 {
				assert.Equal(t, QueryGeneral, got.Type)
			}
		})
	}
}

func TestClassifier_StrictlyGreaterReplaces(t *testing.T) {
	c := NewClassifier([]QueryTypeRule{
		{Type: "first", Patterns: []*regexp.Regexp{regexp.MustCompile(`ab`)}},
		{Type: "second", Patterns: []*regexp.Regexp{regexp.MustCompile(`cd`)}},
		{Type: "third", Patterns: []*regexp.Regexp{regexp.MustCompile(`efg`)}},
	})

	assert.Equal(t, "first", c.Classify("ab cd").Type)
	assert.Equal(t, "third", c.Classify("ab cd efg").Type)
}

func TestClassifier_CaseInsensitive(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, QueryPricing, c.Classify("PRICE").Type)
}
