package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
)

var _ llm.Completer = (*MockCompleter)(nil)

// Reply is one scripted completion result.
type Reply struct {
	Content string
	Err     error
}

// MockCompleter answers completions from per-operation scripts. The last reply of
// a script repeats once the script is exhausted.
type MockCompleter struct {
	mu       sync.Mutex
	scripts  map[string][]Reply
	requests []llm.CompletionRequest
	block    bool
}

func NewMockCompleter() *MockCompleter {
	return &MockCompleter{scripts: make(map[string][]Reply)}
}

// On appends replies for an operation (llm.OpExtract, llm.OpClassify, ...).
func (m *MockCompleter) On(op string, replies ...Reply) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[op] = append(m.scripts[op], replies...)
	return m
}

// Respond is shorthand for On(op, Reply{Content: content}).
func (m *MockCompleter) Respond(op, content string) *MockCompleter {
	return m.On(op, Reply{Content: content})
}

// Fail is shorthand for On(op, Reply{Err: err}).
func (m *MockCompleter) Fail(op string, err error) *MockCompleter {
	return m.On(op, Reply{Err: err})
}

// BlockUntilDone makes every call wait for ctx cancellation.
func (m *MockCompleter) BlockUntilDone() *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = true
	return m
}

func (m *MockCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	block := m.block
	script := m.scripts[req.Operation]
	var reply Reply
	switch {
	case len(script) == 0:
		reply = Reply{Err: errors.New("mock completer: no reply scripted for " + req.Operation)}
	case len(script) == 1:
		reply = script[0]
	default:
		reply = script[0]
		m.scripts[req.Operation] = script[1:]
	}
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return llm.Completion{}, ctx.Err()
	}
	if reply.Err != nil {
		return llm.Completion{}, reply.Err
	}
	return llm.Completion{Content: reply.Content, Model: "mock-model", FinishReason: "stop"}, nil
}

// Requests returns every request seen so far.
func (m *MockCompleter) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.requests...)
}

// Calls counts requests for one operation.
func (m *MockCompleter) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Operation == op {
			n++
		}
	}
	return n
}
