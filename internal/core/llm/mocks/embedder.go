package mocks

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
)

var _ llm.Embedder = (*MockEmbedder)(nil)

// MockEmbedder produces deterministic bag-of-words vectors: each lower-cased word
// is hashed into one of Dimensions buckets. Texts sharing words get a higher cosine.
type MockEmbedder struct {
	Dimensions int

	mu       sync.Mutex
	failNext error
	calls    int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dimensions: 256}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	err := m.failNext
	m.failNext = nil
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, m.Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(m.Dimensions)]++
	}
	return vec, nil
}

// SetFailNext makes the next Embed call return err.
func (m *MockEmbedder) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
