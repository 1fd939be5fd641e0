package retrieval

import (
	"sort"
	"strings"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
)

// KnowledgeMatch is one topic-tagged section of the knowledge document
// selected for a message.
type KnowledgeMatch struct {
	Type     string      `json:"type"`
	Content  interface{} `json:"content"`
	Priority int         `json:"priority"`
	Context  string      `json:"context,omitempty"`
}

// ContextSignals is the part of a conversation the matcher reads.
type ContextSignals struct {
	LastQueryType     string
	HasPartialBooking bool
	Interests         []string
}

// Matcher collects every topic rule that fires for a message.
type Matcher struct {
	doc   *knowledge.Document
	rules *RuleTable
}

// NewMatcher creates a matcher. rules must have been validated against doc.
func NewMatcher(doc *knowledge.Document, rules *RuleTable) *Matcher {
	return &Matcher{doc: doc, rules: rules}
}

// Match returns all matches for an expanded, lowercased message, adjusted by
// signals when non-nil, ordered by descending priority (stable).
func (m *Matcher) Match(expanded string, signals *ContextSignals) []KnowledgeMatch {
	matches := m.matchTopics(expanded)

	if len(matches) == 0 {
		matches = m.matchFAQ(expanded)
	}

	if signals != nil {
		matches = m.applyContext(matches, signals)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority > matches[j].Priority
	})

	return matches
}

func (m *Matcher) matchTopics(msg string) []KnowledgeMatch {
	var out []KnowledgeMatch

	for _, topic := range m.rules.Topics {
		if !containsAny(msg, topic.Keywords) {
			continue
		}
		out = m.appendSpecs(out, topic.Matches)

		settled := make(map[string]bool)
		for _, extra := range topic.Extras {
			if extra.Group != "" && settled[extra.Group] {
				continue
			}
			if len(extra.Keywords) > 0 && !containsAny(msg, extra.Keywords) {
				continue
			}
			if extra.Group != "" {
				settled[extra.Group] = true
			}
			out = m.appendSpecs(out, extra.Matches)
		}
	}

	return out
}

// matchFAQ includes every FAQ entry whose question text occurs in the message.
func (m *Matcher) matchFAQ(msg string) []KnowledgeMatch {
	var out []KnowledgeMatch
	for _, entry := range m.doc.FAQ() {
		if entry.Question == "" || !strings.Contains(msg, strings.ToLower(entry.Question)) {
			continue
		}
		out = append(out, KnowledgeMatch{
			Type: entry.Source,
			Content: map[string]interface{}{
				entry.Category: map[string]interface{}{
					entry.Question: entry.Answer,
				},
			},
			Priority: m.rules.FAQPriority,
		})
	}
	return out
}

func (m *Matcher) applyContext(matches []KnowledgeMatch, signals *ContextSignals) []KnowledgeMatch {
	rules := m.rules.Context

	if signals.LastQueryType != "" {
		for i := range matches {
			if matches[i].Type == signals.LastQueryType {
				matches[i].Priority += rules.LastQueryBoost
			}
		}
	}

	supplement := rules.BookingSupplement
	if signals.HasPartialBooking && supplement.Match.Type != "" && !hasAnyType(matches, supplement.SkipIfPresent) {
		matches = m.appendSpecs(matches, []MatchSpec{supplement.Match})
	}

	for _, interest := range signals.Interests {
		for _, rule := range rules.Interests {
			if rule.Interest != interest || hasAnyType(matches, []string{rule.Match.Type}) {
				continue
			}
			matches = m.appendSpecs(matches, []MatchSpec{rule.Match})
		}
	}

	return matches
}

func (m *Matcher) appendSpecs(out []KnowledgeMatch, specs []MatchSpec) []KnowledgeMatch {
	for _, spec := range specs {
		out = append(out, KnowledgeMatch{
			Type:     spec.Type,
			Content:  spec.resolve(m.doc),
			Priority: spec.Priority,
			Context:  spec.Context,
		})
	}
	return out
}

func containsAny(msg string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

func hasAnyType(matches []KnowledgeMatch, types []string) bool {
	for _, match := range matches {
		for _, t := range types {
			if match.Type == t {
				return true
			}
		}
	}
	return false
}
