// Package chat runs one visitor turn end to end: validation, cached replies,
// greetings, follow-up answers, retrieval and pricing, the completion call,
// post-processing and context updates.
package chat

import (
	"context"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/audit"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/cache"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/conversation"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/domain"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/knowledge"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/llm"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/pricing"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/retrieval"
	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

// Reply sources.
const (
	SourceCache    = "cache"
	SourceGreeting = "greeting"
	SourceFollowUp = "followup"
	SourceModel    = "llm"
)

// Request is one visitor message.
type Request struct {
	Message   string
	SessionID string
	Language  string
}

// Reply is the assistant's answer.
type Reply struct {
	Message   string             `json:"message"`
	SessionID string             `json:"sessionId"`
	QueryType string             `json:"queryType,omitempty"`
	Cached    bool               `json:"cached,omitempty"`
	Source    string             `json:"source"`
	Pricing   *pricing.Breakdown `json:"pricing,omitempty"`
}

// Recorder stores finished turns.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Config tunes the service.
type Config struct {
	Model            string
	Temperature      float32
	ResponseCacheTTL time.Duration
	MaxMessageLength int
	HistoryWindow    int
	DefaultLanguage  string
}

// DefaultConfig matches the production chat settings.
func DefaultConfig() Config {
	return Config{
		Model:            llm.DefaultModel,
		Temperature:      0.7,
		ResponseCacheTTL: time.Hour,
		MaxMessageLength: 2000,
		HistoryWindow:    5,
		DefaultLanguage:  "en",
	}
}

// Deps are the collaborators of a Service. Recorder, Logger and Metrics are
// optional.
type Deps struct {
	Engine   *engine.Engine
	Provider llm.Provider
	Sessions *conversation.SessionManager
	Cache    cache.Client
	Document *knowledge.Document
	Recorder Recorder
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Service handles chat turns.
type Service struct {
	engine   *engine.Engine
	provider llm.Provider
	sessions *conversation.SessionManager
	replies  *responseCache
	doc      *knowledge.Document
	recorder Recorder
	logger   *observability.Logger
	metrics  *observability.Metrics
	cfg      Config

	now  func() time.Time
	intn func(int) int
}

// NewService creates a chat service.
func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Engine == nil || deps.Provider == nil || deps.Sessions == nil || deps.Cache == nil {
		return nil, domain.ConfigError("chat service requires engine, provider, sessions and cache", nil)
	}
	if deps.Document == nil {
		doc, err := knowledge.Default()
		if err != nil {
			return nil, domain.ConfigError("load knowledge document", err)
		}
		deps.Document = doc
	}
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}

	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.ResponseCacheTTL <= 0 {
		cfg.ResponseCacheTTL = def.ResponseCacheTTL
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = def.MaxMessageLength
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = def.DefaultLanguage
	}

	return &Service{
		engine:   deps.Engine,
		provider: deps.Provider,
		sessions: deps.Sessions,
		replies:  &responseCache{client: deps.Cache, ttl: cfg.ResponseCacheTTL},
		doc:      deps.Document,
		recorder: deps.Recorder,
		logger:   deps.Logger.WithOperation("chat"),
		metrics:  deps.Metrics,
		cfg:      cfg,
		now:      time.Now,
		intn:     rand.Intn,
	}, nil
}

// Reply answers one visitor message. Failures carry a domain kind; map them
// to visitor text with UserMessage.
func (s *Service) Reply(ctx context.Context, req Request) (*Reply, error) {
	start := s.now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.ValidationError("message is required", nil)
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageLength {
		return nil, domain.ValidationError("message is too long", nil)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	language := req.Language
	if language == "" {
		language = s.cfg.DefaultLanguage
	}
	logger := s.logger.WithContext(ctx).WithSession(sessionID)

	if cached, ok := s.cachedReply(ctx, logger, sessionID, message); ok {
		return &Reply{
			Message:   cached.Message,
			SessionID: sessionID,
			QueryType: cached.QueryType,
			Cached:    true,
			Source:    SourceCache,
		}, nil
	}

	if IsGreeting(message) {
		text := greeting(s.intn)
		if _, err := s.sessions.WithSession(ctx, sessionID, func(c *conversation.Context) error {
			c.RecordExchange(message, text, s.now())
			return nil
		}); err != nil {
			return nil, err
		}
		reply := &Reply{Message: text, SessionID: sessionID, QueryType: retrieval.QueryGreeting, Source: SourceGreeting}
		s.finish(ctx, logger, message, reply, start)
		return reply, nil
	}

	snapshot, err := s.sessions.Store().Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if snapshot.PendingFollowUp != "" && IsAcknowledgement(message) {
		if reply, ok, err := s.answerFollowUp(ctx, sessionID, message); err != nil {
			return nil, err
		} else if ok {
			s.finish(ctx, logger, message, reply, start)
			return reply, nil
		}
	}

	result := s.engine.Retrieve(message, snapshot)
	var breakdown *pricing.Breakdown
	if engine.ShouldPrice(result) {
		b := s.engine.ComputePricing(message, snapshot)
		breakdown = &b
	}

	logger.Debug().
		Str("query_type", result.QueryType).
		Strs("matches", result.Types()).
		Bool("priced", breakdown != nil).
		Msg("Knowledge retrieved")

	completion, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.cfg.Model,
		Messages: BuildMessages(PromptInput{
			Message:  message,
			Language: language,
			Now:      s.now(),
			Matches:  result.RelevantInfo,
			Pricing:  breakdown,
			History:  snapshot.History(s.cfg.HistoryWindow),
		}),
		MaxTokens:   MaxTokens(message),
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		logger.Error().Err(err).Str("query_type", result.QueryType).Msg("Completion failed")
		if _, serr := s.sessions.WithSession(ctx, sessionID, func(c *conversation.Context) error {
			c.LastInteraction = s.now()
			return nil
		}); serr != nil {
			logger.Warn().Err(serr).Msg("Failed to touch session")
		}
		return nil, err
	}

	text := PostProcess(completion.Content)
	offer, offered := DetectFollowUp(text)

	if _, err := s.sessions.WithSession(ctx, sessionID, func(c *conversation.Context) error {
		s.engine.UpdateContext(c, message, result.RelevantInfo)
		c.OfferedFollowUp, c.PendingFollowUp = "", ""
		if offered {
			c.OfferedFollowUp = offer.Trigger
			c.PendingFollowUp = offer.Name
		}
		c.RecordExchange(message, text, s.now())
		return nil
	}); err != nil {
		return nil, err
	}

	reply := &Reply{
		Message:   text,
		SessionID: sessionID,
		QueryType: result.QueryType,
		Source:    SourceModel,
		Pricing:   breakdown,
	}
	// Acknowledgements depend on the pending offer, so their replies are not reusable.
	if !IsAcknowledgement(message) {
		if err := s.replies.set(ctx, sessionID, message, cachedReply{Message: text, QueryType: result.QueryType}); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache reply")
		}
	}
	s.finish(ctx, logger, message, reply, start)
	return reply, nil
}

func (s *Service) cachedReply(ctx context.Context, logger *observability.Logger, sessionID, message string) (*cachedReply, bool) {
	cached, ok, err := s.replies.get(ctx, sessionID, message)
	if err != nil {
		logger.Warn().Err(err).Msg("Reply cache lookup failed")
		return nil, false
	}
	s.metrics.ObserveCache(ok)
	return cached, ok
}

func (s *Service) answerFollowUp(ctx context.Context, sessionID, message string) (*Reply, bool, error) {
	var text string
	_, err := s.sessions.WithSession(ctx, sessionID, func(c *conversation.Context) error {
		offer, ok := LookupFollowUp(c.PendingFollowUp)
		c.OfferedFollowUp, c.PendingFollowUp = "", ""
		if !ok {
			return nil
		}
		text = PostProcess(offer.Render(s.doc))
		c.RecordExchange(message, text, s.now())
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if text == "" {
		return nil, false, nil
	}
	return &Reply{Message: text, SessionID: sessionID, Source: SourceFollowUp}, true, nil
}

// finish writes the audit row. Audit failures never fail the turn.
func (s *Service) finish(ctx context.Context, logger *observability.Logger, message string, reply *Reply, start time.Time) {
	latency := s.now().Sub(start)
	logger.Info().
		Str("source", reply.Source).
		Str("query_type", reply.QueryType).
		Dur("latency", latency).
		Msg("Chat turn completed")

	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, audit.Entry{
		SessionID:   reply.SessionID,
		UserMessage: message,
		Reply:       reply.Message,
		QueryType:   reply.QueryType,
		Source:      reply.Source,
		LatencyMS:   latency.Milliseconds(),
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to record transcript")
	}
}
