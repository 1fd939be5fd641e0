// Package retrieval selects knowledge for a visitor message.
//
// A message is lowercased, expanded with canonical synonym terms, classified
// into a single query type, and matched against the topic rule table. The
// classification and the match list are independent: one message has exactly
// one query type but may match many topics.
package retrieval

import (
	"strings"
	"time"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
)

// Result is the outcome of one retrieval.
type Result struct {
	RelevantInfo []KnowledgeMatch `json:"relevantInfo"`
	QueryType    string           `json:"queryType"`
	Confidence   float64          `json:"confidence"`
	Expanded     string           `json:"-"`
}

// Types lists the match types in result order.
func (r Result) Types() []string {
	out := make([]string, len(r.RelevantInfo))
	for i, m := range r.RelevantInfo {
		out[i] = m.Type
	}
	return out
}

// Retriever wires the expander, classifier and matcher together.
type Retriever struct {
	logger     *observability.Logger
	metrics    *observability.Metrics
	expander   *Expander
	classifier *Classifier
	matcher    *Matcher
}

// NewRetriever creates a retriever over an explicit document and rule table.
func NewRetriever(logger *observability.Logger, metrics *observability.Metrics, doc *knowledge.Document, rules *RuleTable) *Retriever {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Retriever{
		logger:     logger.WithOperation("retrieve"),
		metrics:    metrics,
		expander:   NewExpander(nil),
		classifier: NewClassifier(nil),
		matcher:    NewMatcher(doc, rules),
	}
}

// NewDefaultRetriever uses the embedded document and rule table.
func NewDefaultRetriever(logger *observability.Logger, metrics *observability.Metrics) (*Retriever, error) {
	doc, err := knowledge.Default()
	if err != nil {
		return nil, err
	}
	rules, err := DefaultRules(doc)
	if err != nil {
		return nil, err
	}
	return NewRetriever(logger, metrics, doc, rules), nil
}

// Expand exposes the synonym expansion of a lowercased message.
func (r *Retriever) Expand(message string) string {
	return r.expander.Expand(strings.ToLower(message))
}

// Classify exposes the query-type label for a raw message.
func (r *Retriever) Classify(message string) Classification {
	return r.classifier.Classify(r.Expand(message))
}

// Retrieve runs the full pipeline. It never fails: an unrecognised message
// yields an empty match list and the general query type.
func (r *Retriever) Retrieve(message string, signals *ContextSignals) Result {
	start := time.Now()

	expanded := r.Expand(message)
	class := r.classifier.Classify(expanded)
	matches := r.matcher.Match(expanded, signals)
	if matches == nil {
		matches = []KnowledgeMatch{}
	}

	result := Result{
		RelevantInfo: matches,
		QueryType:    class.Type,
		Confidence:   class.Confidence,
		Expanded:     expanded,
	}

	r.metrics.ObserveRetrieval(result.QueryType, len(matches))
	r.logger.Debug().
		Str("expanded", expanded).
		Str("query_type", class.Type).
		Float64("confidence", class.Confidence).
		Strs("types", result.Types()).
		Dur("elapsed", time.Since(start)).
		Msg("Knowledge retrieved")

	return result
}
