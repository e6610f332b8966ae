package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turn struct {
	Question     string  `json:"question"`
	LatencySec   float64 `json:"latency_sec"`
	AnswerLength int     `json:"answer_length"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := turn{Question: "What is PheCode:250.2?", LatencySec: 1.25, AnswerLength: 12}

	data, err := Marshal(in)
	require.NoError(t, err)
	assert.True(t, Valid(data))
	assert.Contains(t, string(data), `"latency_sec":1.25`)

	var out turn
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalToString(t *testing.T) {
	s, err := MarshalToString(map[string]int{"n": 5})
	require.NoError(t, err)
	assert.Equal(t, `{"n":5}`, s)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(turn{Question: "q"}))

	var out turn
	require.NoError(t, NewDecoder(strings.NewReader(buf.String())).Decode(&out))
	assert.Equal(t, "q", out.Question)
}

func TestStdFallback(t *testing.T) {
	useStd()
	t.Cleanup(setup)

	assert.False(t, IsUsingSonic())
	data, err := Marshal([]float32{0.5})
	require.NoError(t, err)
	assert.Equal(t, "[0.5]", string(data))
	assert.False(t, Valid([]byte("{")))
}
