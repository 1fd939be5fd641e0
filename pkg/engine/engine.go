// Package engine is the public, in-process entry point to the Lava Show
// knowledge core: retrieval, pricing and conversation context updates.
//
// Every operation is synchronous, bounded and free of I/O, so callers can run
// it directly before and after the language model call.
package engine

import (
	"fmt"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/conversation"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/pricing"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/retrieval"
)

// Re-exported core types.
type (
	Context        = conversation.Context
	KnowledgeMatch = retrieval.KnowledgeMatch
	Result         = retrieval.Result
	Breakdown      = pricing.Breakdown
)

// Engine bundles the knowledge core components.
type Engine struct {
	retriever  *retrieval.Retriever
	calculator *pricing.Calculator
	updater    *conversation.Updater
}

// Config selects optional collaborators. Zero values are fine.
type Config struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Rates   *pricing.RateCard
}

// New builds an engine over the embedded knowledge document and rule table.
func New(cfg Config) (*Engine, error) {
	retriever, err := retrieval.NewDefaultRetriever(cfg.Logger, cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("create retriever: %w", err)
	}

	calc := pricing.NewCalculator(cfg.Logger)
	if cfg.Rates != nil {
		calc = pricing.NewCalculatorWithRates(cfg.Logger, *cfg.Rates)
	}

	return &Engine{
		retriever:  retriever,
		calculator: calc,
		updater:    conversation.NewUpdater(cfg.Logger),
	}, nil
}

// NewWith builds an engine from explicit components.
func NewWith(retriever *retrieval.Retriever, calculator *pricing.Calculator, updater *conversation.Updater) *Engine {
	return &Engine{retriever: retriever, calculator: calculator, updater: updater}
}

// Retrieve selects knowledge for a message and classifies it. ctx may be nil.
func (e *Engine) Retrieve(message string, ctx *Context) Result {
	return e.retriever.Retrieve(message, ctx.Signals())
}

// Classify returns only the query type of a message.
func (e *Engine) Classify(message string) retrieval.Classification {
	return e.retriever.Classify(message)
}

// ComputePricing prices the party described in a message. Callers invoke it
// when the query type is pricing.
func (e *Engine) ComputePricing(message string, ctx *Context) Breakdown {
	return e.calculator.Calculate(message, ctx)
}

// UpdateContext applies the per-turn context updates and returns ctx.
func (e *Engine) UpdateContext(ctx *Context, message string, relevantInfo []KnowledgeMatch) *Context {
	return e.updater.Update(ctx, message, relevantInfo)
}

// ShouldPrice reports whether a retrieval result calls for a price breakdown.
func ShouldPrice(r Result) bool {
	return r.QueryType == retrieval.QueryPricing
}
