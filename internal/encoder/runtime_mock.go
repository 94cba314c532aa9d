package encoder

import (
	"context"
	"sync"

	"github.com/hanpama/resgraph/internal/resource"
)

// MockFetcher resolves the members of one collection in tests.
type MockFetcher func(ctx context.Context, c resource.Collection) ([]resource.Resource, error)

// NewMockMembersFetcher returns a MockFetcher that always yields members.
func NewMockMembersFetcher(members ...resource.Resource) MockFetcher {
	return func(ctx context.Context, c resource.Collection) ([]resource.Resource, error) {
		out := make([]resource.Resource, len(members))
		copy(out, members)
		return out, nil
	}
}

// NewMockErrorFetcher returns a MockFetcher that always fails with err.
func NewMockErrorFetcher(err error) MockFetcher {
	return func(ctx context.Context, c resource.Collection) ([]resource.Resource, error) {
		return nil, err
	}
}

// FetchCall records one FetchMembers invocation.
type FetchCall struct {
	ID  string
	URI string
}

// MockRuntime implements Runtime with per-URI fetch overrides and a call log.
// Collections without an override resolve through Collection.Members. Every
// fetch completes on its own goroutine so suspension is exercised for real.
type MockRuntime struct {
	mu       sync.Mutex
	fetchers map[string]MockFetcher
	calls    []FetchCall
	gate     chan struct{}
}

var _ Runtime = (*MockRuntime)(nil)

// NewMockRuntime creates a MockRuntime. The fetchers map is keyed by
// collection URI.
func NewMockRuntime(fetchers map[string]MockFetcher) *MockRuntime {
	m := &MockRuntime{fetchers: make(map[string]MockFetcher)}
	for k, v := range fetchers {
		m.fetchers[k] = v
	}
	return m
}

// SetFetcher registers or replaces the fetcher for uri.
func (m *MockRuntime) SetFetcher(uri string, f MockFetcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchers[uri] = f
}

// Hold makes subsequent fetches wait until Release is called.
func (m *MockRuntime) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// Release lets held fetches complete.
func (m *MockRuntime) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

func (m *MockRuntime) FetchMembers(ctx context.Context, req MembersRequest) <-chan MembersResult {
	m.mu.Lock()
	f := m.fetchers[req.URI]
	gate := m.gate
	m.calls = append(m.calls, FetchCall{ID: req.Collection.ID(), URI: req.URI})
	m.mu.Unlock()

	if f == nil {
		f = func(ctx context.Context, c resource.Collection) ([]resource.Resource, error) {
			return c.Members(ctx)
		}
	}

	out := make(chan MembersResult, 1)
	go func() {
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				out <- MembersResult{Err: ctx.Err()}
				return
			}
		}
		members, err := f(ctx, req.Collection)
		out <- MembersResult{Members: members, Err: err}
	}()
	return out
}

// GetCalls returns a copy of the recorded calls in order.
func (m *MockRuntime) GetCalls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FetchCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls (fetchers remain).
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
