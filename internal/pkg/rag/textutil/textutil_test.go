package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.988, Round(0.98765, 3))
	assert.Equal(t, 1.23, Round(1.2349, 2))
	assert.Equal(t, 2.0, Round(1.999, 2))
	assert.Equal(t, -0.5, Round(-0.4999, 2))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   \n\t"))
	assert.Equal(t, 4, WordCount(" Type 2  diabetes\nmellitus "))
}

func TestTruncateTokens(t *testing.T) {
	assert.Equal(t, "a b", TruncateTokens("a b c d", 2))
	assert.Equal(t, "a  b", TruncateTokens("a  b", 2), "short input is returned unchanged")
	assert.Equal(t, "a b c", TruncateTokens("a b c", 0))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "糖尿", TruncateString("糖尿病", 2))
	assert.Equal(t, "abc", TruncateString("abc", 5))
}

func TestHashStrings(t *testing.T) {
	a := HashStrings("what is PheCode:250.2?", "doc-1")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashStrings("what is PheCode:250.2?", "doc-1"))
	assert.NotEqual(t, a, HashStrings("what is PheCode:250.2?", "doc-2"))
	assert.NotEqual(t, HashStrings("ab", "c"), HashStrings("a", "bc"))
}
