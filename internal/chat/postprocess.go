package chat

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type termRule struct {
	re          *regexp.Regexp
	replacement string
}

// Applied in order; later rules see the output of earlier ones.
var terminology = compileTerms([][2]string{
	{"demonstration", "show"},
	{"presentation", "show"},
	{"exhibit", "show"},
	{"performance", "show"},
	{"display", "show"},
	{"lava show", "LAVA SHOW"},
	{"premium experience", "Sér"},
	{"classic experience", "Saman"},
	{"standard", "classic"},
	{"basic", "classic"},
	{"guide", "host"},
	{"presenter", "host"},
	{"staff", "team members"},
})

func compileTerms(pairs [][2]string) []termRule {
	rules := make([]termRule, len(pairs))
	for i, p := range pairs {
		rules[i] = termRule{
			re:          regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p[0]) + `\b`),
			replacement: p[1],
		}
	}
	return rules
}

// EnforceTerminology rewrites brand vocabulary. A lowercase replacement keeps
// the capital of a capitalised match.
func EnforceTerminology(text string) string {
	for _, rule := range terminology {
		repl := rule.replacement
		text = rule.re.ReplaceAllStringFunc(text, func(match string) string {
			first, _ := utf8.DecodeRuneInString(match)
			if unicode.IsUpper(first) && repl == strings.ToLower(repl) {
				r, size := utf8.DecodeRuneInString(repl)
				return string(unicode.ToUpper(r)) + repl[size:]
			}
			return repl
		})
	}
	return text
}

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	listLine       = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s`)
	sentence       = regexp.MustCompile(`(?s).+?[.!?]+["')]*(?:\s+|$)`)
)

const sentencesPerParagraph = 2

// FormatParagraphs normalises line endings, collapses blank runs and splits a
// long single-block reply into paragraphs of two sentences. Replies that
// already have paragraphs or contain lists are left as they are.
func FormatParagraphs(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if strings.Contains(text, "\n\n") || listLine.MatchString(text) {
		return text
	}

	bounds := sentence.FindAllStringIndex(text, -1)
	if len(bounds) <= sentencesPerParagraph+1 {
		return text
	}

	sentences := make([]string, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		sentences = append(sentences, text[start:b[1]])
		start = b[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}

	var paragraphs []string
	for i := 0; i < len(sentences); i += sentencesPerParagraph {
		end := i + sentencesPerParagraph
		if end > len(sentences) {
			end = len(sentences)
		}
		var b strings.Builder
		for j, s := range sentences[i:end] {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(s))
		}
		paragraphs = append(paragraphs, b.String())
	}
	return strings.Join(paragraphs, "\n\n")
}

// PostProcess applies terminology and paragraph formatting.
func PostProcess(text string) string {
	return FormatParagraphs(EnforceTerminology(text))
}
