package mocklogger

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// MockHandler is a slog.Handler that keeps every record it receives so tests
// can assert on what was logged.
type MockHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
	attrs   []slog.Attr
}

func NewMockHandler() *MockHandler {
	return &MockHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
}

// Enabled implements slog.Handler.
func (h *MockHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *MockHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r = r.Clone()
	r.AddAttrs(h.attrs...)
	*h.records = append(*h.records, r)
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the record log.
func (h *MockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MockHandler{mu: h.mu, records: h.records, attrs: append(slices.Clip(h.attrs), attrs...)}
}

// WithGroup implements slog.Handler.
func (h *MockHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *MockHandler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(*h.records))
	for i, r := range *h.records {
		out[i] = r.Message
	}
	return out
}

func (h *MockHandler) Levels() []slog.Level {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]slog.Level, len(*h.records))
	for i, r := range *h.records {
		out[i] = r.Level
	}
	return out
}

// Attr returns the value of key on the i-th record.
func (h *MockHandler) Attr(i int, key string) (slog.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(*h.records) {
		return slog.Value{}, false
	}
	var (
		found slog.Value
		ok    bool
	)
	(*h.records)[i].Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found, ok = a.Value, true
			return false
		}
		return true
	})
	return found, ok
}

// NewMockLogger creates a new logger with the mock handler
func NewMockLogger() *slog.Logger {
	return slog.New(NewMockHandler())
}

// NewMockLoggerWithHandler also returns the handler for inspection.
func NewMockLoggerWithHandler() (*slog.Logger, *MockHandler) {
	h := NewMockHandler()
	return slog.New(h), h
}
