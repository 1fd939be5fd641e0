package llm

import (
	"context"
	"sync"
)

// MockResponse is one scripted outcome of MockProvider.
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider returns scripted responses in order, then Fallback forever.
// It records every request it receives.
type MockProvider struct {
	mu        sync.Mutex
	script    []MockResponse
	Fallback  string
	requests  []CompletionRequest
	callCount int
}

// NewMockProvider creates a mock that plays script in order.
func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{script: script, Fallback: "This is a mock response."}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.requests = append(m.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(m.script) == 0 {
		return &CompletionResponse{Content: m.Fallback, Model: "mock", FinishReason: "stop"}, nil
	}
	next := m.script[0]
	m.script = m.script[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &CompletionResponse{Content: next.Content, Model: "mock", FinishReason: "stop"}, nil
}

// Calls returns how many requests were received.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, or false when none was made.
func (m *MockProvider) LastRequest() (CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return CompletionRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}
