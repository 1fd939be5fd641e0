package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
)

func TestDefaultRules_Valid(t *testing.T) {
	doc := knowledge.MustDefault()

	table, err := DefaultRules(doc)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Version)
	assert.Equal(t, 8, table.FAQPriority)
	assert.Equal(t, 2, table.Context.LastQueryBoost)
	require.NotEmpty(t, table.Topics)
	assert.Equal(t, "overview", table.Topics[0].Name)
}

func TestParseRules_Invalid(t *testing.T) {
	doc, err := knowledge.Parse([]byte(faqDoc))
	require.NoError(t, err)

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing version",
			yaml:    "faq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, path: general_info, priority: 1}]}]",
			wantErr: "missing version",
		},
		{
			name:    "missing path",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, path: nowhere.at_all, priority: 1}]}]",
			wantErr: "missing key path",
		},
		{
			name:    "path and content together",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, path: general_info, content: hi, priority: 1}]}]",
			wantErr: "exactly one of path or content",
		},
		{
			name:    "neither path nor content",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, priority: 1}]}]",
			wantErr: "exactly one of path or content",
		},
		{
			name:    "duplicate topic",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, content: c, priority: 1}]}, {name: a, keywords: [y], matches: [{type: t, content: c, priority: 1}]}]",
			wantErr: "duplicate topic",
		},
		{
			name:    "no keywords",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, matches: [{type: t, content: c, priority: 1}]}]",
			wantErr: "no keywords",
		},
		{
			name:    "fallback without group",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, content: c, priority: 1}], extras: [{matches: [{type: u, content: c, priority: 1}]}]}]",
			wantErr: "must belong to a group",
		},
		{
			name:    "group continues after fallback",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, content: c, priority: 1}], extras: [{group: g, matches: [{type: u, content: c, priority: 1}]}, {group: g, keywords: [z], matches: [{type: v, content: c, priority: 1}]}]}]",
			wantErr: "continues after its fallback",
		},
		{
			name:    "zero priority",
			yaml:    "version: 1\nfaq_priority: 8\ntopics: [{name: a, keywords: [x], matches: [{type: t, content: c, priority: 0}]}]",
			wantErr: "priority must be positive",
		},
		{
			name:    "interest with missing path",
			yaml:    "version: 1\nfaq_priority: 8\ncontext: {interests: [{interest: science, match: {type: t, path: nope, priority: 5}}]}\ntopics: [{name: a, keywords: [x], matches: [{type: t, content: c, priority: 1}]}]",
			wantErr: "context.interests.science",
		},
		{
			name:    "malformed yaml",
			yaml:    "version: [",
			wantErr: "parse rule table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml), doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseRules_GroupFallback(t *testing.T) {
	doc, err := knowledge.Parse([]byte(faqDoc))
	require.NoError(t, err)

	rules, err := ParseRules([]byte(`
version: 1
faq_priority: 8
topics:
  - name: city
    keywords: [where]
    matches:
      - {type: base, content: base, priority: 5}
    extras:
      - group: g
        keywords: [north]
        matches:
          - {type: north, content: n, priority: 7}
      - group: g
        keywords: [south]
        matches:
          - {type: south, content: s, priority: 7}
      - group: g
        matches:
          - {type: both, content: b, priority: 6}
`), doc)
	require.NoError(t, err)

	m := NewMatcher(doc, rules)
	types := func(msg string) []string {
		return Result{RelevantInfo: m.Match(msg, nil)}.Types()
	}

	assert.Equal(t, []string{"north", "base"}, types("where north and south"))
	assert.Equal(t, []string{"south", "base"}, types("where south"))
	assert.Equal(t, []string{"both", "base"}, types("where"))
	assert.Empty(t, types("nothing here"))
}
