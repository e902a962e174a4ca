package resolver

import (
	"context"
	"sync"

	"github.com/ledgerlens/ledgerlens/internal/service"
)

// MockDelegate implements Delegate for testing. Behavior is configured via
// function fields; unset fields return a clean no-match.
type MockDelegate struct {
	MatchCustomFunc  func(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error)
	ClassifyFunc     func(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error)
	mu               sync.Mutex
	matchCustomCalls int
	classifyCalls    int
}

// MatchCustomCategory implements Delegate.
func (m *MockDelegate) MatchCustomCategory(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error) {
	m.mu.Lock()
	m.matchCustomCalls++
	m.mu.Unlock()

	if m.MatchCustomFunc != nil {
		return m.MatchCustomFunc(ctx, taxonomy, merchant, description)
	}
	return service.DelegateResponse{Matched: false}, nil
}

// ClassifyWithTaxonomy implements Delegate.
func (m *MockDelegate) ClassifyWithTaxonomy(ctx context.Context, taxonomy map[string][]string, merchant, description string) (service.DelegateResponse, error) {
	m.mu.Lock()
	m.classifyCalls++
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, taxonomy, merchant, description)
	}
	return service.DelegateResponse{
		Category:    "Other",
		Subcategory: "General",
		Reasoning:   "mock fallback",
		Matched:     true,
	}, nil
}

// MatchCustomCalls returns how many times the custom-category tier consulted
// the delegate.
func (m *MockDelegate) MatchCustomCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchCustomCalls
}

// ClassifyCalls returns how many times the fallback tier consulted the
// delegate.
func (m *MockDelegate) ClassifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifyCalls
}
