package handlers

import (
	"net/http"
	"time"
)

// HealthHandler serves the unauthenticated status endpoints.
type HealthHandler struct {
	openAIConfigured bool
	apiKeyConfigured bool
	now              func() time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(openAIConfigured, apiKeyConfigured bool) *HealthHandler {
	return &HealthHandler{
		openAIConfigured: openAIConfigured,
		apiKeyConfigured: apiKeyConfigured,
		now:              time.Now,
	}
}

// HealthDTO is the body of GET /.
type HealthDTO struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Config    HealthConfigDTO `json:"config"`
}

// HealthConfigDTO reports which secrets are present, never their values.
type HealthConfigDTO struct {
	OpenAIConfigured bool `json:"openaiConfigured"`
	APIKeyConfigured bool `json:"apiKeyConfigured"`
}

// ChatStatusDTO is the body of GET /chat.
type ChatStatusDTO struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthDTO{
		Status:    "OK",
		Timestamp: h.timestamp(),
		Config: HealthConfigDTO{
			OpenAIConfigured: h.openAIConfigured,
			APIKeyConfigured: h.apiKeyConfigured,
		},
	})
}

// ChatStatus handles GET /chat.
func (h *HealthHandler) ChatStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ChatStatusDTO{
		Status:    "OK",
		Message:   "Lava Show chat server is running",
		Timestamp: h.timestamp(),
	})
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}
