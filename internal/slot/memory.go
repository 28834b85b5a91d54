package slot

import (
	"context"
	"sync"
)

// Memory is a process-local slot. Contents vanish on exit.
type Memory struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *Memory) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	m.data = append([]byte(nil), data...)
	m.set = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(context.Context) error {
	m.mu.Lock()
	m.data = nil
	m.set = false
	m.mu.Unlock()
	return nil
}
