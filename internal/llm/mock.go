package llm

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockReply is the reply a fresh MockProvider gives to every prompt
const MockReply = `{"verdict":"partially_true","explanation":"mock provider: no model was consulted"}`

// Responder produces a raw reply for a request
type Responder func(ctx context.Context, req JudgeRequest) (string, error)

// MockProvider is a deterministic provider for offline runs and tests
type MockProvider struct {
	mu      sync.Mutex
	respond Responder
	calls   int
	prompts []string
}

// NewMockProvider returns a provider that always answers MockReply
func NewMockProvider() *MockProvider {
	return &MockProvider{
		respond: func(context.Context, JudgeRequest) (string, error) {
			return MockReply, nil
		},
	}
}

// NewScriptedProvider answers with replies in order; the last one repeats
func NewScriptedProvider(replies ...string) *MockProvider {
	var next atomic.Int64
	m := &MockProvider{}
	m.respond = func(context.Context, JudgeRequest) (string, error) {
		i := int(next.Add(1)) - 1
		if i >= len(replies) {
			i = len(replies) - 1
		}
		if i < 0 {
			return "", nil
		}
		return replies[i], nil
	}
	return m
}

// NewResponderProvider delegates every request to fn
func NewResponderProvider(fn Responder) *MockProvider {
	return &MockProvider{respond: fn}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// IsAvailable always reports true
func (m *MockProvider) IsAvailable(context.Context) bool {
	return true
}

// Judge returns the scripted reply, validated like a real provider's
func (m *MockProvider) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()

	reply, err := m.respond(ctx, req)
	if err != nil {
		return nil, err
	}

	return finish(req, reply, "mock", 0)
}

// Calls returns how many judgments were requested
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns every prompt received, in order
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
