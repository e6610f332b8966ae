package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragopts "github.com/kart-io/clinrag/pkg/options/clinrag"
)

func TestServerOptions_DefaultsAreValid(t *testing.T) {
	o := NewServerOptions()
	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())
}

func TestServerOptions_Flags(t *testing.T) {
	o := NewServerOptions()
	fss := o.Flags()

	for section, flag := range map[string]string{
		"http":      "http.addr",
		"rag":       "rag.chunk-size",
		"clinvec":   "clinvec.embeddings-path",
		"embedding": "embedding.provider",
		"generator": "generator.max-new-tokens",
		"nli":       "nli.model",
		"cache":     "cache.enabled",
		"pool":      "pool.embed-workers",
		"tracing":   "tracing.enabled",
	} {
		fs := fss.FlagSet(section)
		assert.NotNil(t, fs.Lookup(flag), "missing --%s", flag)
	}

	require.NoError(t, fss.FlagSet("generator").Set("generator.model", "google/flan-t5-large"))
	assert.Equal(t, "google/flan-t5-large", o.GeneratorOptions.Model)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", o.EmbeddingOptions.Model)
}

func TestServerOptions_MilvusValidatedOnlyWhenSelected(t *testing.T) {
	o := NewServerOptions()
	require.NoError(t, o.Complete())
	o.MilvusOptions.Address = ""
	assert.NoError(t, o.Validate())

	o.RAGOptions.Store = ragopts.StoreMilvus
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "milvus address is required")
}

func TestServerOptions_Config(t *testing.T) {
	o := NewServerOptions()
	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.RAGOptions, cfg.RAGOptions)
	assert.Same(t, o.NLIOptions, cfg.NLIOptions)
	assert.Same(t, o.PoolOptions, cfg.PoolOptions)
}
