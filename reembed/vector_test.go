package reembed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/sprintly/ai/mock"
)

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{"unit vector unchanged", []float32{0, 1, 0}, []float32{0, 1, 0}},
		{"3-4-5 triangle", []float32{3, 4}, []float32{0.6, 0.8}},
		{"negative components", []float32{-2, 2}, []float32{-float32(1 / math.Sqrt2), float32(1 / math.Sqrt2)}},
		{"tiny components", []float32{1e-4, 2e-4, 2e-4}, []float32{1.0 / 3, 2.0 / 3, 2.0 / 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Len(t, result, len(tt.expected))
			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
			assert.InDelta(t, 1.0, magnitude(result), 1e-6)
		})
	}
}

func TestNormalizeVector_DoesNotModifyInput(t *testing.T) {
	input := []float32{3, 4}
	_ = NormalizeVector(input)
	assert.Equal(t, []float32{3, 4}, input)
}

func TestNormalizeVector_Degenerate(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0}, NormalizeVector([]float32{0, 0, 0}))
	assert.Empty(t, NormalizeVector([]float32{}))
	assert.Nil(t, NormalizeVector(nil))
}

func TestNormalizeVector_EmbeddingSized(t *testing.T) {
	vec := mock.GenerateDeterministicVector("Name: Amira Haddad | Role: investor", mock.DefaultDimensions)
	for i := range vec {
		vec[i] *= 7
	}
	assert.InDelta(t, 1.0, magnitude(NormalizeVector(vec)), 1e-5)
}
