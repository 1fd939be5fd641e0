package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpander_Expand(t *testing.T) {
	e := NewExpander(nil)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"synonym appends canonical", "how much does it cost", "how much does it cost price"},
		{"canonical already present", "price of a ticket", "price of a ticket book"},
		{"one variant appends once", "i want to see the show", "i want to see the show experience"},
		{"shared variant feeds two terms in table order", "can i buy one", "can i buy one book gift"},
		{"nothing to expand", "xyzzy", "xyzzy"},
		{"empty", "", ""},
		{"substring matching is loose", "costume", "costume price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(tt.message))
		})
	}
}

func TestExpander_Idempotent(t *testing.T) {
	e := NewExpander(nil)

	messages := []string{
		"how much does it cost",
		"where can i buy a ticket for the kids",
		"is the volcano show safe for my team",
		"xyzzy",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			once := e.Expand(msg)
			assert.Equal(t, once, e.Expand(once))
		})
	}
}

func TestExpander_EachCanonicalAtMostOnce(t *testing.T) {
	e := NewExpander(nil)
	out := e.Expand("cost fee payment charge money")

	assert.Equal(t, 1, strings.Count(out, " price"))
}

func TestExpander_CustomTable(t *testing.T) {
	e := NewExpander([]Synonym{{Canonical: "furnace", Variants: []string{"oven", "kiln"}}})

	assert.Equal(t, "the kiln furnace", e.Expand("the kiln"))
	assert.Equal(t, "the price", e.Expand("the price"))
}
