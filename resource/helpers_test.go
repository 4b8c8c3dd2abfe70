package resource

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/task"
)

// fakeTransport records every dispatched request and answers with handler.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []*HTTPConfig
	handler func(ctx context.Context, cfg *HTTPConfig) (*Response, error)
}

func (f *fakeTransport) Do(ctx context.Context, cfg *HTTPConfig) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cfg)
	f.mu.Unlock()
	if f.handler == nil {
		return &Response{Status: http.StatusOK}, nil
	}
	return f.handler(ctx, cfg)
}

func (f *fakeTransport) requests() []*HTTPConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*HTTPConfig(nil), f.calls...)
}

func (f *fakeTransport) last(t *testing.T) *HTTPConfig {
	t.Helper()
	calls := f.requests()
	if len(calls) == 0 {
		t.Fatal("expected a dispatched request, got none")
	}
	return calls[len(calls)-1]
}

func respondWith(status int, data any) func(context.Context, *HTTPConfig) (*Response, error) {
	return func(context.Context, *HTTPConfig) (*Response, error) {
		if status >= 300 {
			return nil, &HTTPError{Status: status, Data: data}
		}
		return &Response{Status: status, Data: data}, nil
	}
}

// mapResolver resolves names from a map and counts lookups.
type mapResolver struct {
	mu      sync.Mutex
	entries map[string]any
	lookups map[string]int
}

func newMapResolver(entries map[string]any) *mapResolver {
	return &mapResolver{entries: entries, lookups: map[string]int{}}
}

func (m *mapResolver) Resolve(name string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[name]++
	v, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s is not registered", name)
	}
	return v, nil
}

func (m *mapResolver) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups[name]
}

func newTestResource(t *testing.T, cfg Config, transport Transport, opts ...Option) *Resource {
	t.Helper()
	opts = append([]Option{WithTransport(transport), WithLogger(logger.Nop())}, opts...)
	r, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func await(t *testing.T, tk *task.Task) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := tk.Await(ctx)
	if err == context.DeadlineExceeded {
		t.Fatal("task did not settle")
	}
	return v, err
}

func mustAwait(t *testing.T, tk *task.Task) any {
	t.Helper()
	v, err := await(t, tk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}
