package retrieval

import (
	"regexp"
	"unicode/utf8"
)

// QueryType labels used by the classifier.
const (
	QueryPricing     = "pricing"
	QueryBooking     = "booking"
	QueryLocation    = "location"
	QuerySafety      = "safety"
	QueryEducational = "educational"
	QueryGroup       = "group"
	QueryExperiences = "experiences"
	QueryGift        = "gift"
	QueryChildren    = "children"
	QueryGreeting    = "greeting"
	QuerySmalltalk   = "smalltalk"
	QueryGeneral     = "general"
)

// QueryTypeRule is one entry of the ordered classification table.
type QueryTypeRule struct {
	Type     string
	Patterns []*regexp.Regexp
}

// DefaultQueryTypes is the classification table. Order matters: ties keep the
// earlier rule.
var DefaultQueryTypes = []QueryTypeRule{
	{QueryPricing, []*regexp.Regexp{regexp.MustCompile(`(?i)price|cost|how much|discount|offer|deal|cheap|expensive`)}},
	{QueryBooking, []*regexp.Regexp{regexp.MustCompile(`(?i)book|reserve|when|time|schedule|date|slot|available|cancel|modify`)}},
	{QueryLocation, []*regexp.Regexp{regexp.MustCompile(`(?i)where|location|address|direction|find|get there|near|area|city`)}},
	{QuerySafety, []*regexp.Regexp{regexp.MustCompile(`(?i)safety|danger|protect|risk|emergency|secure|hazard|threat`)}},
	{QueryEducational, []*regexp.Regexp{regexp.MustCompile(`(?i)science|how|work|temperature|lava|melt|learn|volcano|explain`)}},
	{QueryGroup, []*regexp.Regexp{regexp.MustCompile(`(?i)group|team|class|school|company|corporate|private|event`)}},
	{QueryExperiences, []*regexp.Regexp{regexp.MustCompile(`(?i)experience|package|difference|compare|classic|premium|show`)}},
	{QueryGift, []*regexp.Regexp{regexp.MustCompile(`(?i)gift|souvenir|shop|buy|purchase|memento|store|merchandise`)}},
	{QueryChildren, []*regexp.Regexp{regexp.MustCompile(`(?i)child|kid|young|age|restriction|family|baby|infant|allowed`)}},
	{QueryGreeting, []*regexp.Regexp{regexp.MustCompile(`(?i)hello|hi|hey|greetings|morning|afternoon|evening`)}},
	{QuerySmalltalk, []*regexp.Regexp{regexp.MustCompile(`(?i)how are you|nice|good|glad|happy|thanks|thank you|great`)}},
}

// Classification is the single label assigned to a message.
type Classification struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Classifier assigns one query type per message.
type Classifier struct {
	rules []QueryTypeRule
}

// NewClassifier creates a classifier over rules. Nil uses DefaultQueryTypes.
func NewClassifier(rules []QueryTypeRule) *Classifier {
	if rules == nil {
		rules = DefaultQueryTypes
	}
	return &Classifier{rules: rules}
}

// Classify returns the best-scoring rule, where a pattern's score is the
// length of its first match over the message length. Only a strictly higher
// score replaces the current best. No match yields general with confidence 0.
func (c *Classifier) Classify(message string) Classification {
	best := Classification{Type: QueryGeneral}

	total := utf8.RuneCountInString(message)
	if total == 0 {
		return best
	}

	for _, rule := range c.rules {
		for _, pattern := range rule.Patterns {
			m := pattern.FindString(message)
			if m == "" {
				continue
			}
			confidence := float64(utf8.RuneCountInString(m)) / float64(total)
			if confidence > best.Confidence {
				best = Classification{Type: rule.Type, Confidence: confidence}
			}
		}
	}

	return best
}
