package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/audit"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/conversation"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

// KnowledgeHandler exposes retrieval, pricing and transcripts without a
// model call.
type KnowledgeHandler struct {
	logger   *observability.Logger
	engine   *engine.Engine
	sessions *conversation.SessionManager
	audit    *audit.Store
}

// NewKnowledgeHandler creates a knowledge handler. store may be nil.
func NewKnowledgeHandler(logger *observability.Logger, eng *engine.Engine, sessions *conversation.SessionManager, store *audit.Store) *KnowledgeHandler {
	return &KnowledgeHandler{logger: logger, engine: eng, sessions: sessions, audit: store}
}

// MessageRequestDTO is the body of the retrieve and pricing endpoints.
type MessageRequestDTO struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// TranscriptsDTO lists a session's audit rows.
type TranscriptsDTO struct {
	SessionID string        `json:"sessionId"`
	Entries   []audit.Entry `json:"entries"`
}

// Retrieve handles POST /api/v1/retrieve.
func (h *KnowledgeHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	req, c, ok := h.parse(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Retrieve(req.Message, c))
}

// Pricing handles POST /api/v1/pricing.
func (h *KnowledgeHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	req, c, ok := h.parse(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.engine.ComputePricing(req.Message, c))
}

// Transcripts handles GET /api/v1/sessions/{sessionId}/transcripts.
func (h *KnowledgeHandler) Transcripts(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotFound, "transcripts are not recorded", "")
		return
	}
	sessionID := chi.URLParam(r, "sessionId")

	entries, err := h.audit.ListBySession(r.Context(), sessionID, 0)
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("List transcripts failed")
		writeError(w, http.StatusInternalServerError, "list transcripts failed", "")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, TranscriptsDTO{SessionID: sessionID, Entries: entries})
}

// parse decodes the body and loads the session context when one is named.
func (h *KnowledgeHandler) parse(w http.ResponseWriter, r *http.Request) (MessageRequestDTO, *conversation.Context, bool) {
	var req MessageRequestDTO
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return req, nil, false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", "")
		return req, nil, false
	}
	if req.SessionID == "" {
		return req, nil, true
	}

	c, err := h.sessions.Store().Load(r.Context(), req.SessionID)
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("Load session failed")
		writeError(w, http.StatusInternalServerError, "load session failed", "")
		return req, nil, false
	}
	return req, c, true
}
