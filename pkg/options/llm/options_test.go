package llm

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderOptions_Flags(t *testing.T) {
	o := NewGeneratorOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs, "generator")

	require.NoError(t, fs.Parse([]string{"--generator.provider=ollama", "--generator.max-new-tokens=64"}))
	assert.Equal(t, "ollama", o.Provider)
	assert.Equal(t, 64, o.ToConfigMap()["max_new_tokens"])
}

func TestProviderOptions_Validate(t *testing.T) {
	o := NewNLIOptions()
	assert.Len(t, o.Validate(), 1, "huggingface requires an api key")

	o.APIKey = "hf_x"
	assert.Empty(t, o.Validate())

	o.Provider = "ollama"
	o.APIKey = ""
	assert.Empty(t, o.Validate())
}

func TestToConfigMap_OmitsEmptyBaseURL(t *testing.T) {
	m := NewEmbeddingOptions().ToConfigMap()
	_, ok := m["base_url"]
	assert.False(t, ok)
	_, ok = m["max_new_tokens"]
	assert.False(t, ok)
}
