package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// vocabEmbedder is a deterministic embedding service: each vector
// dimension counts occurrences of one vocabulary word. Texts about
// the same topic end up close in cosine space.
type vocabEmbedder struct {
	vocab []string

	mu         sync.Mutex
	embedCalls int
	batchCalls int
	// failText makes EmbedBatch fail with err only for batches
	// containing the substring. Empty means err applies to every call.
	failText string
	err      error
}

func newVocabEmbedder(vocab ...string) *vocabEmbedder {
	if len(vocab) == 0 {
		vocab = []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	}
	return &vocabEmbedder{vocab: vocab}
}

func (e *vocabEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(e.vocab))
	for i, word := range e.vocab {
		v[i] = float32(strings.Count(lower, word))
	}
	return v
}

func (e *vocabEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.embedCalls++
	if e.err != nil && (e.failText == "" || strings.Contains(text, e.failText)) {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *vocabEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchCalls++
	if e.err != nil {
		if e.failText == "" {
			return nil, e.err
		}
		for _, text := range texts {
			if strings.Contains(text, e.failText) {
				return nil, e.err
			}
		}
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *vocabEmbedder) Dimensions() int               { return len(e.vocab) }
func (e *vocabEmbedder) ModelName() string             { return "vocab-test" }
func (e *vocabEmbedder) Ping(_ context.Context) error  { return nil }
func (e *vocabEmbedder) Close() error                  { return nil }
func (e *vocabEmbedder) batchCallCount() int           { e.mu.Lock(); defer e.mu.Unlock(); return e.batchCalls }

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	mu       sync.Mutex
	answer   string
	err      error
	failures int // fail this many calls before succeeding
	calls    int
	prompts  []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil && (m.failures == 0 || m.calls <= m.failures) {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// fakeProvider implements driven.FileProvider over fixed content.
type fakeProvider struct {
	mu       sync.Mutex
	files    []driven.FileInfo
	data     map[string][]byte
	listErr  error
	fetchErr map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		data:     make(map[string][]byte),
		fetchErr: make(map[string]error),
	}
}

func (p *fakeProvider) add(info driven.FileInfo, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.files {
		if p.files[i].ID == info.ID {
			p.files[i] = info
			p.data[info.ID] = content
			return
		}
	}
	p.files = append(p.files, info)
	p.data[info.ID] = content
}

func (p *fakeProvider) List(_ context.Context) ([]driven.FileInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]driven.FileInfo, len(p.files))
	copy(out, p.files)
	return out, nil
}

func (p *fakeProvider) Fetch(_ context.Context, id string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fetchErr[id]; err != nil {
		return nil, err
	}
	content, ok := p.data[id]
	if !ok {
		return nil, fmt.Errorf("no such file %q", id)
	}
	return content, nil
}
