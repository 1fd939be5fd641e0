package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/conversation"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/llm"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/pricing"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/retrieval"
)

var languageNames = map[string]string{
	"en": "English",
	"is": "Icelandic",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
}

// PromptInput is everything one completion request is built from.
type PromptInput struct {
	Message  string
	Language string
	Now      time.Time
	Matches  []retrieval.KnowledgeMatch
	Pricing  *pricing.Breakdown
	History  []conversation.Message
}

// BuildMessages assembles the system prompt, recent history and the wrapped
// visitor question.
func BuildMessages(in PromptInput) []llm.Message {
	messages := make([]llm.Message, 0, len(in.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt(in)})

	for _, m := range in.History {
		role := llm.RoleUser
		if m.Role == string(llm.RoleAssistant) {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userPrompt(in)})
	return messages
}

func systemPrompt(in PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are Lava Show's virtual assistant. Today is %s.", in.Now.Format("Monday, January 2, 2006"))

	if lang, ok := languageNames[in.Language]; ok && in.Language != "en" {
		fmt.Fprintf(&b, " Always reply in %s.", lang)
	}

	if len(in.Matches) > 0 {
		b.WriteString("\n\nKNOWLEDGE BASE DATA:")
		for _, m := range in.Matches {
			fmt.Fprintf(&b, "\n\n%s:\n%s", strings.ToUpper(m.Type), toJSON(m.Content))
		}
	}

	if in.Pricing != nil {
		fmt.Fprintf(&b, "\n\nPRICING CALCULATION:\n%s", toJSON(in.Pricing))
	}
	return b.String()
}

func userPrompt(in PromptInput) string {
	return fmt.Sprintf("Knowledge Base Information: %s\n\nUser Question: %s\n\n"+
		"Please provide a natural, conversational response using ONLY the information from the knowledge base. "+
		"Be specific and accurate with details like times, prices, and safety information.",
		toJSON(in.Matches), in.Message)
}

// toJSON indents v, falling back to the plain text rendering for content
// JSON cannot encode.
func toJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return knowledge.Render(v)
	}
	return string(data)
}
