package history

import (
	"maps"
	"sync"
	"time"
)

// Memory is an in-memory Store for tests and embedded use. It applies the
// same bounding rules as the SQLite implementation.
type Memory struct {
	mu    sync.Mutex
	msgs  []ChatMessage
	prefs map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{prefs: map[string]string{}}
}

func (m *Memory) Append(role Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, ChatMessage{
		Role:      role,
		Content:   clip(content, MaxContentLen),
		Timestamp: time.Now().UTC(),
	})
	if len(m.msgs) > MaxMessages {
		m.msgs = m.msgs[len(m.msgs)-MaxMessages:]
	}
	return nil
}

func (m *Memory) LoadAll() ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatMessage, len(m.msgs))
	copy(out, m.msgs)
	return out, nil
}

func (m *Memory) Summarize(maxChars int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return summarize(m.msgs, maxChars), nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = nil
	return nil
}

func (m *Memory) ReadPreferences() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := maps.Clone(m.prefs)
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func (m *Memory) WritePreferences(prefs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = maps.Clone(prefs)
	return nil
}

func (m *Memory) Close() error { return nil }
