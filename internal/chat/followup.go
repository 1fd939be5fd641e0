package chat

import (
	"regexp"
	"strings"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
)

// FollowUp is an offer the assistant can make at the end of a reply. When the
// visitor accepts it, the answer is built from knowledge sections without a
// model call.
type FollowUp struct {
	Name     string
	Trigger  string
	Intro    string
	Sections []string
}

// FollowUps are the offers recognised in replies.
var FollowUps = []FollowUp{
	{
		Name:     "lava_creation",
		Trigger:  "Would you like to learn more about how we create the lava show?",
		Intro:    "Let me explain our lava creation process. We use real basaltic tephra from the 1918 Katla eruption, which we superheat to 1100°C (2000°F).",
		Sections: []string{"show_technical_details", "educational_content"},
	},
	{
		Name:     "experiences_info",
		Trigger:  "Would you like to know about our different experience packages?",
		Intro:    "We offer two main experiences: Our Classic Experience (Saman) and Premium Experience (Sér).",
		Sections: []string{"experiences"},
	},
	{
		Name:     "safety_measures",
		Trigger:  "I can explain more about our safety measures.",
		Intro:    "Safety is our top priority.",
		Sections: []string{"safety_protocols"},
	},
}

var acknowledgement = regexp.MustCompile(`\b(yes|yeah|sure|okay|ok|definitely|please|tell me|id like that|i'd like that|i would|go ahead)\b`)

// IsAcknowledgement reports whether message accepts an offer.
func IsAcknowledgement(message string) bool {
	return acknowledgement.MatchString(strings.ToLower(message))
}

// LookupFollowUp finds a follow-up by name.
func LookupFollowUp(name string) (FollowUp, bool) {
	for _, f := range FollowUps {
		if f.Name == name {
			return f, true
		}
	}
	return FollowUp{}, false
}

// DetectFollowUp returns the follow-up whose trigger sentence appears in reply.
func DetectFollowUp(reply string) (FollowUp, bool) {
	lower := strings.ToLower(reply)
	for _, f := range FollowUps {
		if strings.Contains(lower, strings.ToLower(f.Trigger)) {
			return f, true
		}
	}
	return FollowUp{}, false
}

// Render builds the answer from the intro and the rendered sections. Sections
// missing from doc are skipped.
func (f FollowUp) Render(doc *knowledge.Document) string {
	parts := []string{f.Intro}
	for _, section := range f.Sections {
		content, ok := doc.Lookup(section)
		if !ok {
			continue
		}
		if text := knowledge.Render(content); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
