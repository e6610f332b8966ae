package evaluator_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/clinrag/internal/pkg/rag/evaluator"
	"github.com/kart-io/clinrag/pkg/llm"
)

// mockClassifier 模拟 NLI 分类器，记录收到的输入。
type mockClassifier struct {
	mu     sync.Mutex
	inputs []string
	labels []llm.Label
	err    error
}

func (m *mockClassifier) Classify(_ context.Context, text string) ([]llm.Label, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, text)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]llm.Label, len(m.labels))
	copy(out, m.labels)
	return out, nil
}

func (m *mockClassifier) Name() string { return "mock-nli" }

// mockEmbedProvider 按文本返回预设向量。
type mockEmbedProvider struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectors[t]
	}
	return out, nil
}

func (m *mockEmbedProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	v, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (m *mockEmbedProvider) Name() string { return "mock-embed" }

func TestEvaluate(t *testing.T) {
	cls := &mockClassifier{labels: []llm.Label{
		{Label: "NEUTRAL", Score: 0.01234},
		{Label: "ENTAILMENT", Score: 0.98765},
		{Label: "CONTRADICTION", Score: 0.0001},
	}}
	emb := &mockEmbedProvider{vectors: map[string][]float32{
		"What is PheCode:250.2?": {1, 0},
		"Type 2 diabetes.":       {1, 1},
	}}

	e := evaluator.New(cls, emb)
	res, err := e.Evaluate(context.Background(), "ctx text", "What is PheCode:250.2?", "Type 2 diabetes.")
	require.NoError(t, err)

	assert.Equal(t, "ENTAILMENT", res.FaithfulnessLabel)
	assert.Equal(t, 0.988, res.FaithfulnessScore)
	assert.Equal(t, 0.707, res.RelevanceScore)

	require.Len(t, cls.inputs, 1)
	assert.Equal(t, "ctx text </s> Type 2 diabetes.", cls.inputs[0])
}

func TestEvaluate_ClassifierFailure(t *testing.T) {
	cls := &mockClassifier{err: errors.New("model loading")}
	emb := &mockEmbedProvider{vectors: map[string][]float32{}}

	_, err := evaluator.New(cls, emb).Evaluate(context.Background(), "c", "q", "a")
	assert.ErrorContains(t, err, "model loading")
}

func TestEvaluate_EmbeddingFailure(t *testing.T) {
	cls := &mockClassifier{labels: []llm.Label{{Label: "ENTAILMENT", Score: 1}}}
	emb := &mockEmbedProvider{err: errors.New("quota exceeded")}

	_, err := evaluator.New(cls, emb).Evaluate(context.Background(), "c", "q", "a")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestFaithfulness_NoLabels(t *testing.T) {
	e := evaluator.New(&mockClassifier{}, &mockEmbedProvider{})
	_, _, err := e.Faithfulness(context.Background(), "c", "a")
	assert.Error(t, err)
}

func TestFaithfulness_TruncatesInput(t *testing.T) {
	cls := &mockClassifier{labels: []llm.Label{{Label: "NEUTRAL", Score: 0.5}}}
	e := evaluator.New(cls, &mockEmbedProvider{}, evaluator.WithMaxTokens(4))

	_, _, err := e.Faithfulness(context.Background(), "one two three four five", "answer")
	require.NoError(t, err)
	assert.Equal(t, "one two three four", cls.inputs[0])
}

func TestNLIInput(t *testing.T) {
	long := strings.Repeat("word ", 600)
	in := evaluator.NLIInput(long, "answer", evaluator.DefaultMaxTokens)
	assert.Len(t, strings.Fields(in), evaluator.DefaultMaxTokens)

	assert.Equal(t, "c </s> a", evaluator.NLIInput("c", "a", 512))
}

func TestUnknown(t *testing.T) {
	u := evaluator.Unknown()
	assert.Equal(t, evaluator.LabelUnknown, u.FaithfulnessLabel)
	assert.Zero(t, u.FaithfulnessScore)
	assert.Zero(t, u.RelevanceScore)
}
