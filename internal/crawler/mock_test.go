package crawler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu     sync.Mutex
	cache  map[string][]byte
	setErr error
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// mockSession serves canned pages keyed by URL
type mockSession struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	calls  []string
	closed int
	onCall func(url string)
}

func newMockSession() *mockSession {
	return &mockSession{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (m *mockSession) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	onCall := m.onCall
	m.mu.Unlock()

	if onCall != nil {
		onCall(url)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := m.errs[url]; ok {
		return "", err
	}
	return m.pages[url], nil
}

func (m *mockSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockSession) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockPublisher records published messages
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages[key] = append(m.messages[key], message)
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// recordingSink collects progress events
type recordingSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recordingSink) OnProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recordingSink) Of(kind EventKind) []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProgressEvent
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
