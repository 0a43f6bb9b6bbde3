package eventlogger

import (
	"context"
	"sync"
)

// MemoryEventLogger keeps events in process. It backs the memory store driver
// and tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{}
}

func (m *MemoryEventLogger) Save(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryEventLogger) GetByType(ctx context.Context, eventType string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]Event, 0)
	for _, e := range m.events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}
	return events, nil
}

// Log saves synchronously, so it can stand in for a Worker in tests.
func (m *MemoryEventLogger) Log(e Event) {
	_ = m.Save(context.Background(), e)
}

// Types lists the type of every saved event in order.
func (m *MemoryEventLogger) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}
