package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// Render flattens a document section into indented plain text: mappings become
// "Key: value" lines with sorted keys, lists become "- item" lines.
func Render(content interface{}) string {
	var b strings.Builder
	render(&b, content, 0)
	return strings.TrimRight(b.String(), "\n")
}

func render(b *strings.Builder, v interface{}, depth int) {
	indent := strings.Repeat("  ", depth)
	switch t := v.(type) {
	case nil:
	case string:
		b.WriteString(indent + t + "\n")
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			label := humanize(k)
			switch child := t[k].(type) {
			case map[string]interface{}, []interface{}:
				b.WriteString(indent + label + ":\n")
				render(b, child, depth+1)
			default:
				b.WriteString(fmt.Sprintf("%s%s: %v\n", indent, label, scalar(child)))
			}
		}
	case []interface{}:
		for _, item := range t {
			switch child := item.(type) {
			case map[string]interface{}, []interface{}:
				b.WriteString(indent + "-\n")
				render(b, child, depth+1)
			default:
				b.WriteString(fmt.Sprintf("%s- %v\n", indent, scalar(child)))
			}
		}
	default:
		b.WriteString(fmt.Sprintf("%s%v\n", indent, t))
	}
}

func scalar(v interface{}) interface{} {
	if v == nil {
		return ""
	}
	return v
}

func humanize(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
