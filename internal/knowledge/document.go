// Package knowledge holds the static Lava Show knowledge document.
//
// The document is a nested YAML mapping embedded in the binary. It is parsed
// once and never mutated; callers address sections by dotted key path.
package knowledge

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/knowledge.yaml
var embeddedDocument []byte

// Document is the parsed, read-only knowledge document.
type Document struct {
	root   map[string]interface{}
	topics []string
	faq    []FAQEntry
}

// FAQEntry is one question/answer pair found under a FAQ section.
type FAQEntry struct {
	// Source is the top-level section the entry came from (faq or extended_faq).
	Source   string
	Category string
	Question string
	Answer   interface{}
}

// FAQSections lists the top-level sections scanned for question/answer pairs.
var FAQSections = []string{"faq", "extended_faq"}

var (
	defaultOnce sync.Once
	defaultDoc  *Document
	defaultErr  error
)

// Default returns the embedded document, parsed on first use.
func Default() (*Document, error) {
	defaultOnce.Do(func() {
		defaultDoc, defaultErr = Parse(embeddedDocument)
	})
	return defaultDoc, defaultErr
}

// MustDefault is Default for program start-up; it panics if the embedded
// document does not parse.
func MustDefault() *Document {
	doc, err := Default()
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded document: %v", err))
	}
	return doc
}

// Parse builds a Document from YAML.
func Parse(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse knowledge document: %w", err)
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("knowledge document must be a mapping")
	}
	top := node.Content[0]

	root := make(map[string]interface{})
	if err := top.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode knowledge document: %w", err)
	}

	doc := &Document{root: root}
	for i := 0; i+1 < len(top.Content); i += 2 {
		doc.topics = append(doc.topics, top.Content[i].Value)
	}

	for _, section := range FAQSections {
		sectionNode := mappingValue(top, section)
		if sectionNode == nil {
			continue
		}
		entries, err := collectFAQ(section, sectionNode)
		if err != nil {
			return nil, err
		}
		doc.faq = append(doc.faq, entries...)
	}

	return doc, nil
}

// Topics returns the top-level keys in document order.
func (d *Document) Topics() []string {
	out := make([]string, len(d.topics))
	copy(out, d.topics)
	return out
}

// Lookup resolves a dotted key path such as "general_info.locations".
func (d *Document) Lookup(path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	var cur interface{} = d.root
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// MustLookup is Lookup for paths known at build time. A missing path is a
// programming error and panics.
func (d *Document) MustLookup(path string) interface{} {
	v, ok := d.Lookup(path)
	if !ok {
		panic(fmt.Sprintf("knowledge: missing key path %q", path))
	}
	return v
}

// FAQ returns every FAQ entry in document order.
func (d *Document) FAQ() []FAQEntry {
	out := make([]FAQEntry, len(d.faq))
	copy(out, d.faq)
	return out
}

// collectFAQ walks each category of a FAQ section and gathers every mapping
// that carries a question, at any depth, in document order.
func collectFAQ(section string, node *yaml.Node) ([]FAQEntry, error) {
	var out []FAQEntry
	for i := 0; i+1 < len(node.Content); i += 2 {
		category := node.Content[i].Value
		var walk func(n *yaml.Node) error
		walk = func(n *yaml.Node) error {
			if n.Kind != yaml.MappingNode {
				return nil
			}
			if q := mappingValue(n, "question"); q != nil && q.Kind == yaml.ScalarNode {
				entry := FAQEntry{Source: section, Category: category, Question: q.Value}
				if a := mappingValue(n, "answer"); a != nil {
					if err := a.Decode(&entry.Answer); err != nil {
						return fmt.Errorf("decode answer for %q: %w", q.Value, err)
					}
				}
				out = append(out, entry)
				return nil
			}
			for j := 1; j < len(n.Content); j += 2 {
				if err := walk(n.Content[j]); err != nil {
					return err
				}
			}
			return nil
		}
		if err := walk(node.Content[i+1]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
