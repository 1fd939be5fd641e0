package handlers

import (
	"net/http"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/chat"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/domain"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
)

// ChatHandler handles visitor messages.
type ChatHandler struct {
	logger  *observability.Logger
	service *chat.Service
}

// NewChatHandler creates a chat handler.
func NewChatHandler(logger *observability.Logger, service *chat.Service) *ChatHandler {
	return &ChatHandler{logger: logger, service: service}
}

// ChatRequestDTO is the body of POST /chat.
type ChatRequestDTO struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	Language  string `json:"language,omitempty"`
}

// ChatResponseDTO is the answer to POST /chat.
type ChatResponseDTO struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	QueryType string `json:"queryType,omitempty"`
	Cached    bool   `json:"cached,omitempty"`
}

// Post handles POST /chat.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req ChatRequestDTO
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	reply, err := h.service.Reply(r.Context(), chat.Request{
		Message:   req.Message,
		SessionID: req.SessionID,
		Language:  req.Language,
	})
	if err != nil {
		if domain.IsKind(err, domain.KindValidation) {
			writeError(w, http.StatusBadRequest, "invalid message", err.Error())
			return
		}
		h.logger.WithContext(r.Context()).Error().Err(err).Str("session_id", req.SessionID).Msg("Chat turn failed")
		writeJSON(w, http.StatusInternalServerError, ErrorDTO{Error: chat.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponseDTO{
		Message:   reply.Message,
		SessionID: reply.SessionID,
		QueryType: reply.QueryType,
		Cached:    reply.Cached,
	})
}
