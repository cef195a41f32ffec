package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/core"
)

// MockClassifier is a test double for ai.Classifier.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockClassifier struct {
	// ClassifyFunc is called by Classify if set.
	// If nil, uses a keyword heuristic on the position and company.
	ClassifyFunc func(ctx context.Context, name, company, position string) (ai.Classification, error)

	mu        sync.Mutex
	callCount int
}

// NewMockClassifier creates a mock classifier with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

var roleKeywords = []struct {
	role     core.Role
	keywords []string
}{
	{core.RoleFounder, []string{"founder", "ceo", "cto"}},
	{core.RoleInvestor, []string{"investor", "partner", "ventures", "capital", "vc", "angel"}},
	{core.RoleEnabler, []string{"advisor", "accelerator", "lawyer", "mentor", "banker"}},
}

// Classify returns a classification derived from keywords.
func (m *MockClassifier) Classify(ctx context.Context, name, company, position string) (ai.Classification, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ClassifyFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, name, company, position)
	}

	result := ai.UnknownClassification()
	text := strings.ToLower(position + " " + company)
	for _, rk := range roleKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(text, kw) {
				result.Role = rk.role
				result.Confidence = 0.5
				result.Tags = []string{kw}
				return result, nil
			}
		}
	}
	return result, nil
}

// CallCount returns the number of times Classify was called.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ClassifyFunc = nil
}
