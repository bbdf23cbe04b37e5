package logging

import (
	"context"
	"sync"
)

// Level names the severity of a captured event.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one event captured by Memory.
type Entry struct {
	Level   Level
	Message string
	Fields  Fields
}

// Memory keeps events in memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory returns an empty in-memory logger.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Debug(_ context.Context, msg string, fields Fields) {
	m.add(LevelDebug, msg, fields)
}

func (m *Memory) Info(_ context.Context, msg string, fields Fields) {
	m.add(LevelInfo, msg, fields)
}

func (m *Memory) Warn(_ context.Context, msg string, fields Fields) {
	m.add(LevelWarn, msg, fields)
}

func (m *Memory) Error(_ context.Context, err error, fields Fields) {
	msg := "<nil error>"
	if err != nil {
		msg = err.Error()
	}
	m.add(LevelError, msg, fields)
}

// Entries returns a copy of every captured event.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Count returns how many events were captured at the given level.
func (m *Memory) Count(level Level) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Find returns the first event at level whose message equals msg.
func (m *Memory) Find(level Level, msg string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Level == level && e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}

func (m *Memory) add(level Level, msg string, fields Fields) {
	cp := make(Fields, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	m.mu.Lock()
	m.entries = append(m.entries, Entry{Level: level, Message: msg, Fields: cp})
	m.mu.Unlock()
}
