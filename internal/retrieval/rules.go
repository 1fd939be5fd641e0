package retrieval

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
)

//go:embed data/rules.yaml
var embeddedRules []byte

// RuleTable is the versioned, data-driven topic rule table.
type RuleTable struct {
	Version     int          `yaml:"version"`
	FAQPriority int          `yaml:"faq_priority"`
	Context     ContextRules `yaml:"context"`
	Topics      []TopicRule  `yaml:"topics"`
}

// TopicRule attaches matches when any keyword appears in the message.
type TopicRule struct {
	Name     string      `yaml:"name"`
	Keywords []string    `yaml:"keywords"`
	Matches  []MatchSpec `yaml:"matches"`
	Extras   []SubRule   `yaml:"extras"`
}

// SubRule adds further matches inside a fired topic.
type SubRule struct {
	Group    string      `yaml:"group"`
	Keywords []string    `yaml:"keywords"`
	Matches  []MatchSpec `yaml:"matches"`
}

// MatchSpec describes one KnowledgeMatch to emit.
type MatchSpec struct {
	Type     string      `yaml:"type"`
	Path     string      `yaml:"path"`
	Content  interface{} `yaml:"content"`
	Priority int         `yaml:"priority"`
	Context  string      `yaml:"context"`
}

// ContextRules configures the session-aware adjustments.
type ContextRules struct {
	LastQueryBoost    int               `yaml:"last_query_boost"`
	BookingSupplement BookingSupplement `yaml:"booking_supplement"`
	Interests         []InterestRule    `yaml:"interests"`
}

// BookingSupplement is appended when the session holds partial booking details.
type BookingSupplement struct {
	SkipIfPresent []string  `yaml:"skip_if_present"`
	Match         MatchSpec `yaml:"match"`
}

// InterestRule maps an accumulated interest tag to a topic.
type InterestRule struct {
	Interest string    `yaml:"interest"`
	Match    MatchSpec `yaml:"match"`
}

// ParseRules decodes a rule table and checks it against the document.
func ParseRules(data []byte, doc *knowledge.Document) (*RuleTable, error) {
	var table RuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}
	if err := table.Validate(doc); err != nil {
		return nil, err
	}
	return &table, nil
}

// DefaultRules returns the embedded rule table validated against doc.
func DefaultRules(doc *knowledge.Document) (*RuleTable, error) {
	return ParseRules(embeddedRules, doc)
}

// MustDefaultRules panics on a broken embedded table; the table and document
// ship together, so a mismatch is a build-time defect.
func MustDefaultRules(doc *knowledge.Document) *RuleTable {
	table, err := DefaultRules(doc)
	if err != nil {
		panic(fmt.Sprintf("retrieval: %v", err))
	}
	return table
}

// Validate checks structure and that every content path resolves.
func (t *RuleTable) Validate(doc *knowledge.Document) error {
	if t.Version < 1 {
		return fmt.Errorf("rule table: missing version")
	}
	if t.FAQPriority < 1 {
		return fmt.Errorf("rule table: faq_priority must be positive")
	}
	if len(t.Topics) == 0 {
		return fmt.Errorf("rule table: no topics")
	}

	seen := make(map[string]bool, len(t.Topics))
	for _, topic := range t.Topics {
		if topic.Name == "" {
			return fmt.Errorf("rule table: topic without name")
		}
		if seen[topic.Name] {
			return fmt.Errorf("rule table: duplicate topic %q", topic.Name)
		}
		seen[topic.Name] = true

		if len(topic.Keywords) == 0 {
			return fmt.Errorf("topic %q: no keywords", topic.Name)
		}
		if err := validateSpecs(doc, topic.Name, topic.Matches); err != nil {
			return err
		}

		fallbackSeen := make(map[string]bool)
		for i, extra := range topic.Extras {
			where := fmt.Sprintf("%s.extras[%d]", topic.Name, i)
			if len(extra.Keywords) == 0 {
				if extra.Group == "" {
					return fmt.Errorf("%s: extra without keywords must belong to a group", where)
				}
				if fallbackSeen[extra.Group] {
					return fmt.Errorf("%s: group %q has two fallbacks", where, extra.Group)
				}
				fallbackSeen[extra.Group] = true
			} else if extra.Group != "" && fallbackSeen[extra.Group] {
				return fmt.Errorf("%s: group %q continues after its fallback", where, extra.Group)
			}
			if err := validateSpecs(doc, where, extra.Matches); err != nil {
				return err
			}
		}
	}

	supplement := t.Context.BookingSupplement.Match
	if supplement.Type != "" {
		if err := validateSpecs(doc, "context.booking_supplement", []MatchSpec{supplement}); err != nil {
			return err
		}
	}
	for _, rule := range t.Context.Interests {
		if rule.Interest == "" {
			return fmt.Errorf("context.interests: missing interest tag")
		}
		if err := validateSpecs(doc, "context.interests."+rule.Interest, []MatchSpec{rule.Match}); err != nil {
			return err
		}
	}

	return nil
}

func validateSpecs(doc *knowledge.Document, where string, specs []MatchSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%s: no matches", where)
	}
	for _, spec := range specs {
		if spec.Type == "" {
			return fmt.Errorf("%s: match without type", where)
		}
		if spec.Priority < 1 {
			return fmt.Errorf("%s: %s priority must be positive", where, spec.Type)
		}
		hasPath := spec.Path != ""
		hasLiteral := spec.Content != nil
		if hasPath == hasLiteral {
			return fmt.Errorf("%s: %s needs exactly one of path or content", where, spec.Type)
		}
		if hasPath {
			if _, ok := doc.Lookup(spec.Path); !ok {
				return fmt.Errorf("%s: %s references missing key path %q", where, spec.Type, spec.Path)
			}
		}
	}
	return nil
}

// resolve produces the match content for a spec. Paths were validated at load.
func (s MatchSpec) resolve(doc *knowledge.Document) interface{} {
	if s.Path != "" {
		return doc.MustLookup(s.Path)
	}
	return s.Content
}
