package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/domain"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.status))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 1*time.Second, calculateBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, calculateBackoff(1, cfg))
	assert.Equal(t, 4*time.Second, calculateBackoff(2, cfg))
	assert.Equal(t, 30*time.Second, calculateBackoff(10, cfg))
}

func newTestResilient(p Provider, cfg RetryConfig) (*Resilient, *[]time.Duration) {
	r := NewResilient(p, cfg, nil, nil)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestResilient_RetriesThenSucceeds(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &HTTPError{StatusCode: 503, Message: "busy"}},
		MockResponse{Err: &HTTPError{StatusCode: 500, Message: "oops"}},
		MockResponse{Content: "The lava is 1100°C."},
	)
	r, slept := newTestResilient(mock, DefaultRetryConfig())

	resp, err := r.Complete(context.Background(), CompletionRequest{})

	require.NoError(t, err)
	assert.Equal(t, "The lava is 1100°C.", resp.Content)
	assert.Equal(t, 3, mock.Calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestResilient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  domain.ErrorKind
		wantCalls int
	}{
		{"rate limited", &HTTPError{StatusCode: 429}, domain.KindRateLimit, 3},
		{"server error", &HTTPError{StatusCode: 502}, domain.KindUpstream, 3},
		{"bad request", &HTTPError{StatusCode: 400}, domain.KindValidation, 1},
		{"deadline", context.DeadlineExceeded, domain.KindTimeout, 3},
		{"unknown", errors.New("boom"), domain.KindUpstream, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(
				MockResponse{Err: tt.err},
				MockResponse{Err: tt.err},
				MockResponse{Err: tt.err},
			)
			r, _ := newTestResilient(mock, DefaultRetryConfig())

			_, err := r.Complete(context.Background(), CompletionRequest{})

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Equal(t, tt.wantCalls, mock.Calls())
		})
	}
}

func TestResilient_BreakerOpens(t *testing.T) {
	script := make([]MockResponse, 0, 4)
	for i := 0; i < 4; i++ {
		script = append(script, MockResponse{Err: errors.New("down")})
	}
	mock := NewMockProvider(script...)
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerFailures = 2
	cfg.BreakerOpen = time.Hour
	r, _ := newTestResilient(mock, cfg)

	for i := 0; i < 2; i++ {
		_, err := r.Complete(context.Background(), CompletionRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	_, err := r.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, domain.IsKind(err, domain.KindUpstream))
	assert.Equal(t, 2, mock.Calls(), "open breaker must not reach the provider")
}

func TestResilient_ValidationDoesNotTrip(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &HTTPError{StatusCode: 400}},
		MockResponse{Err: &HTTPError{StatusCode: 400}},
		MockResponse{Err: &HTTPError{StatusCode: 400}},
	)
	cfg := DefaultRetryConfig()
	cfg.BreakerFailures = 1
	r, _ := newTestResilient(mock, cfg)

	for i := 0; i < 3; i++ {
		_, _ = r.Complete(context.Background(), CompletionRequest{})
	}
	assert.Equal(t, gobreaker.StateClosed, r.State())
}

func TestResilient_CancelledContext(t *testing.T) {
	mock := NewMockProvider()
	r, _ := newTestResilient(mock, DefaultRetryConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Complete(ctx, CompletionRequest{})

	assert.True(t, domain.IsKind(err, domain.KindTimeout))
	assert.Zero(t, mock.Calls())
}

func TestMockProvider_Fallback(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "first"})
	mock.Fallback = "again"

	first, err := mock.Complete(context.Background(), CompletionRequest{MaxTokens: 5})
	require.NoError(t, err)
	second, err := mock.Complete(context.Background(), CompletionRequest{MaxTokens: 7})
	require.NoError(t, err)

	assert.Equal(t, "first", first.Content)
	assert.Equal(t, "again", second.Content)
	last, ok := mock.LastRequest()
	require.True(t, ok)
	assert.Equal(t, 7, last.MaxTokens)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4-1106-preview",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Welcome to LAVA SHOW!"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL+"/v1", "")
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{{Role: RoleSystem, Content: "be nice"}, {Role: RoleUser, Content: "hi"}},
		MaxTokens:   400,
		Temperature: 0.7,
	})

	require.NoError(t, err)
	assert.Equal(t, "Welcome to LAVA SHOW!", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, DefaultModel, got["model"])
	assert.EqualValues(t, 400, got["max_tokens"])
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIProvider_StatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL+"/v1", "")
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})

	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, statusCode(err))
	assert.True(t, domain.IsKind(classify(err), domain.KindRateLimit))
}
