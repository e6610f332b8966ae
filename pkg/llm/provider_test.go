package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider 模拟供应商实现，用于测试。
type mockProvider struct {
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (string, error) {
	return "mock generated text", nil
}

func (m *mockProvider) Classify(_ context.Context, _ string) ([]Label, error) {
	return []Label{{Label: "ENTAILMENT", Score: 0.9}}, nil
}

func init() {
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("test-provider", map[string]any{"name": "custom-name"})
	require.NoError(t, err)
	assert.Equal(t, "custom-name", provider.Name())

	_, err = NewProvider("unknown-provider", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewEmbeddingProvider(t *testing.T) {
	RegisterEmbeddingProvider("embed-only", func(map[string]any) (EmbeddingProvider, error) {
		return &mockProvider{name: "embed-only"}, nil
	})

	provider, err := NewEmbeddingProvider("embed-only", nil)
	require.NoError(t, err)
	assert.Equal(t, "embed-only", provider.Name())

	// 回退到完整供应商
	fallback, err := NewEmbeddingProvider("test-provider", nil)
	require.NoError(t, err)
	assert.NotNil(t, fallback)

	_, err = NewEmbeddingProvider("missing", nil)
	assert.Error(t, err)
}

func TestNewChatProvider(t *testing.T) {
	RegisterChatProvider("chat-only", func(map[string]any) (ChatProvider, error) {
		return &mockProvider{name: "chat-only"}, nil
	})

	provider, err := NewChatProvider("chat-only", nil)
	require.NoError(t, err)
	assert.Equal(t, "chat-only", provider.Name())

	fallback, err := NewChatProvider("test-provider", nil)
	require.NoError(t, err)
	assert.NotNil(t, fallback)
}

func TestNewClassifierProvider(t *testing.T) {
	RegisterClassifierProvider("nli", func(map[string]any) (ClassifierProvider, error) {
		return &mockProvider{name: "nli"}, nil
	})

	c, err := NewClassifierProvider("nli", nil)
	require.NoError(t, err)
	labels, err := c.Classify(context.Background(), "premise </s> hypothesis")
	require.NoError(t, err)
	assert.Equal(t, "ENTAILMENT", labels[0].Label)

	// 分类器不会回退到完整供应商
	_, err = NewClassifierProvider("test-provider", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestListProviders(t *testing.T) {
	providers := ListProviders()
	assert.Contains(t, providers, "test-provider")
	assert.IsNonDecreasing(t, providers)
}

func TestSortLabels(t *testing.T) {
	labels := []Label{
		{Label: "NEUTRAL", Score: 0.2},
		{Label: "ENTAILMENT", Score: 0.7},
		{Label: "CONTRADICTION", Score: 0.2},
	}
	SortLabels(labels)
	assert.Equal(t, []string{"ENTAILMENT", "CONTRADICTION", "NEUTRAL"},
		[]string{labels[0].Label, labels[1].Label, labels[2].Label})
}
