package retrieval

import "strings"

// Synonym maps a canonical term to the variants that imply it.
type Synonym struct {
	Canonical string
	Variants  []string
}

// DefaultSynonyms is the synonym table, in expansion order.
var DefaultSynonyms = []Synonym{
	{"price", []string{"cost", "fee", "payment", "expense", "charge", "pay", "spend", "money"}},
	{"schedule", []string{"timetable", "times", "hours", "when", "slots", "show time", "show times"}},
	{"book", []string{"reserve", "ticket", "purchase", "buy", "booking", "reservation", "seat", "seats"}},
	{"location", []string{"where", "place", "venue", "address", "building", "direction", "directions", "find"}},
	{"experience", []string{"show", "tour", "visit", "attraction", "activity", "watch", "see", "attend"}},
	{"group", []string{"team", "party", "company", "class", "school", "families", "friends", "corporate"}},
	{"child", []string{"kid", "children", "young", "youth", "teenager", "minor", "baby", "infant"}},
	{"safety", []string{"secure", "safe", "protection", "danger", "risk", "hazard", "emergency", "protect"}},
	{"gift", []string{"souvenir", "memento", "present", "shop", "store", "merchandise", "buy"}},
	{"lava", []string{"magma", "molten rock", "volcanic", "eruption", "volcano", "how it works", "melted"}},
}

// Expander appends canonical terms implied by synonyms.
type Expander struct {
	table []Synonym
}

// NewExpander creates an expander over table. A nil table uses DefaultSynonyms.
func NewExpander(table []Synonym) *Expander {
	if table == nil {
		table = DefaultSynonyms
	}
	return &Expander{table: table}
}

// Expand appends, once each and in table order, every canonical term whose
// synonym occurs in message while the term itself does not. Matching is plain
// substring containment on the message as given; callers lowercase first.
func (e *Expander) Expand(message string) string {
	var b strings.Builder
	b.WriteString(message)

	for _, syn := range e.table {
		if strings.Contains(message, syn.Canonical) {
			continue
		}
		for _, v := range syn.Variants {
			if strings.Contains(message, v) {
				b.WriteByte(' ')
				b.WriteString(syn.Canonical)
				break
			}
		}
	}

	return b.String()
}
