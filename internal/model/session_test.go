package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "2.0", FormatFloat(2))
	assert.Equal(t, "0.988", FormatFloat(0.988))
	assert.Equal(t, "1.25", FormatFloat(1.25))
	assert.Equal(t, "0.0", FormatFloat(0))
	assert.Equal(t, "-0.5", FormatFloat(-0.5))
	assert.Equal(t, "NaN", FormatFloat(math.NaN()))
}

func TestTurnMetrics_Summary(t *testing.T) {
	m := TurnMetrics{
		LatencySec:        1.5,
		AnswerLength:      12,
		Faithfulness:      "ENTAILMENT",
		FaithfulnessScore: 0.988,
		RelevanceScore:    0.7,
	}
	assert.Equal(t, "Latency: 1.5s | Length: 12 tokens | Faithfulness: ENTAILMENT (0.988) | Relevance: 0.7", m.Summary())
}
