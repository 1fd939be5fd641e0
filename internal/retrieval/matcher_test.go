package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
)

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	r, err := NewDefaultRetriever(nil, nil)
	require.NoError(t, err)
	return r
}

func TestRetrieve_NoMatch(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("xyzzy", nil)

	assert.NotNil(t, got.RelevantInfo)
	assert.Empty(t, got.RelevantInfo)
	assert.Equal(t, QueryGeneral, got.QueryType)
	assert.Zero(t, got.Confidence)
}

func TestRetrieve_SafetyAndEvacuation(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("Safety and evacuation", nil)

	require.GreaterOrEqual(t, len(got.RelevantInfo), 2)
	assert.Equal(t, "emergency_procedures", got.RelevantInfo[0].Type)
	assert.Equal(t, 10, got.RelevantInfo[0].Priority)
	assert.Equal(t, "safety_protocols", got.RelevantInfo[1].Type)
	assert.Equal(t, 9, got.RelevantInfo[1].Priority)
	assert.Equal(t, QuerySafety, got.QueryType)
}

func TestRetrieve_TopicRules(t *testing.T) {
	r := newTestRetriever(t)

	tests := []struct {
		name        string
		message     string
		wantTypes   []string
		absentTypes []string
	}{
		{
			name:        "reykjavik location links",
			message:     "where is the reykjavik location",
			wantTypes:   []string{"location_link_reykjavik", "booking_link_reykjavik", "general_info"},
			absentTypes: []string{"location_link_vik", "location_links"},
		},
		{
			name:        "vik location links",
			message:     "directions to vik",
			wantTypes:   []string{"location_link_vik", "booking_link_vik", "general_info"},
			absentTypes: []string{"location_link_reykjavik", "location_links"},
		},
		{
			name:        "generic location gets both links",
			message:     "what is the address",
			wantTypes:   []string{"general_info", "location_links"},
			absentTypes: []string{"location_link_vik", "location_link_reykjavik"},
		},
		{
			name:      "nearby adds local area",
			message:   "address and things nearby",
			wantTypes: []string{"general_info", "location_links", "extended_visitor_info"},
		},
		{
			name:      "corporate catering",
			message:   "corporate event with food",
			wantTypes: []string{"group_bookings", "special_services"},
		},
		{
			name:      "gift cards",
			message:   "can i buy a gift card",
			wantTypes: []string{"gift_card_link", "gift_shop", "gift_cards"},
		},
		{
			name:      "premium pricing pulls booking link",
			message:   "premium package price",
			wantTypes: []string{"booking_link", "experiences", "experience_links", "booking_policies"},
		},
		{
			name:      "late arrival",
			message:   "we might be late",
			wantTypes: []string{"booking_management", "arrival"},
		},
		{
			name:      "agent commission",
			message:   "agent commission",
			wantTypes: []string{"payment_terms", "travel_sector"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Retrieve(tt.message, nil)
			types := got.Types()
			for _, want := range tt.wantTypes {
				assert.Contains(t, types, want)
			}
			for _, absent := range tt.absentTypes {
				assert.NotContains(t, types, absent)
			}
			assertSortedByPriority(t, got.RelevantInfo)
		})
	}
}

func TestRetrieve_ExactOrderForReykjavik(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("where is the reykjavik location", nil)

	assert.Equal(t, []string{"location_link_reykjavik", "booking_link_reykjavik", "general_info"}, got.Types())
	locations, ok := got.RelevantInfo[2].Content.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, locations, "reykjavik")
	assert.Contains(t, locations, "vik")
}

func TestRetrieve_ContextBoost(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("safety and evacuation", &ContextSignals{LastQueryType: "safety_protocols"})

	require.NotEmpty(t, got.RelevantInfo)
	assert.Equal(t, "safety_protocols", got.RelevantInfo[0].Type)
	assert.Equal(t, 11, got.RelevantInfo[0].Priority)
}

func TestRetrieve_BookingSupplement(t *testing.T) {
	r := newTestRetriever(t)

	t.Run("added when no experience match", func(t *testing.T) {
		got := r.Retrieve("xyzzy", &ContextSignals{HasPartialBooking: true})
		require.Len(t, got.RelevantInfo, 1)
		assert.Equal(t, "experiences", got.RelevantInfo[0].Type)
		assert.Equal(t, 6, got.RelevantInfo[0].Priority)
		assert.Equal(t, "Based on your previous questions about booking", got.RelevantInfo[0].Context)
	})

	t.Run("skipped when experiences already matched", func(t *testing.T) {
		got := r.Retrieve("premium package", &ContextSignals{HasPartialBooking: true})
		count := 0
		for _, m := range got.RelevantInfo {
			if m.Type == "experiences" {
				count++
				assert.Empty(t, m.Context)
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("not added without booking info", func(t *testing.T) {
		got := r.Retrieve("xyzzy", &ContextSignals{})
		assert.Empty(t, got.RelevantInfo)
	})
}

func TestRetrieve_InterestSupplements(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("xyzzy", &ContextSignals{Interests: []string{"science", "safety", "science", "photography"}})

	assert.Equal(t, []string{"educational_content", "safety_protocols"}, got.Types())
	for _, m := range got.RelevantInfo {
		assert.Equal(t, 5, m.Priority)
		assert.NotEmpty(t, m.Context)
	}

	got = r.Retrieve("is it safe", &ContextSignals{Interests: []string{"safety"}})
	count := 0
	for _, m := range got.RelevantInfo {
		if m.Type == "safety_protocols" {
			count++
			assert.Equal(t, 9, m.Priority)
		}
	}
	assert.Equal(t, 1, count, "interest must not duplicate a matched type")
}

const faqDoc = `
general_info:
  tagline: Real lava.
faq:
  booking:
    refund:
      question: Can I get a refund?
      answer: Yes, up to 24 hours before.
extended_faq:
  science:
    rocks:
      basalt:
        question: Is it basalt?
        answer: Yes.
`

const faqRules = `
version: 1
faq_priority: 8
topics:
  - name: overview
    keywords: [overview]
    matches:
      - {type: general_info, path: general_info, priority: 5}
`

func TestMatcher_FAQFallback(t *testing.T) {
	doc, err := knowledge.Parse([]byte(faqDoc))
	require.NoError(t, err)
	rules, err := ParseRules([]byte(faqRules), doc)
	require.NoError(t, err)
	r := NewRetriever(nil, nil, doc, rules)

	got := r.Retrieve("Hi! Can I get a refund? Also, is it basalt?", nil)
	require.Len(t, got.RelevantInfo, 2)
	assert.Equal(t, "faq", got.RelevantInfo[0].Type)
	assert.Equal(t, map[string]interface{}{
		"booking": map[string]interface{}{"Can I get a refund?": "Yes, up to 24 hours before."},
	}, got.RelevantInfo[0].Content)
	assert.Equal(t, "extended_faq", got.RelevantInfo[1].Type)
	assert.Equal(t, 8, got.RelevantInfo[1].Priority)

	// A fired topic suppresses the FAQ scan.
	got = r.Retrieve("overview: can i get a refund?", nil)
	assert.Equal(t, []string{"general_info"}, got.Types())
}

func TestMatcher_StableTies(t *testing.T) {
	r := newTestRetriever(t)

	got := r.Retrieve("premium package", nil)

	// experiences and experience_links share priority 8 and keep rule order.
	var eight []string
	for _, m := range got.RelevantInfo {
		if m.Priority == 8 {
			eight = append(eight, m.Type)
		}
	}
	require.GreaterOrEqual(t, len(eight), 2)
	assert.Equal(t, "experiences", eight[0])
	assert.Equal(t, "experience_links", eight[1])
}

func assertSortedByPriority(t *testing.T, matches []KnowledgeMatch) {
	t.Helper()
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Priority, matches[i].Priority)
	}
}
