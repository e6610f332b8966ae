package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/clinrag/pkg/infra/app/cliflag"
)

type testOptions struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Model struct {
		APIKey string `mapstructure:"api-key"`
		TopK   int    `mapstructure:"top-k"`
	} `mapstructure:"model"`

	completed bool
	validErr  error
}

func (o *testOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("server")
	fs.StringVar(&o.Server.Addr, "server.addr", ":8080", "listen address")
	fs.IntVar(&o.Model.TopK, "model.top-k", 3, "top k")
	return fss
}

func (o *testOptions) Complete() error { o.completed = true; return nil }
func (o *testOptions) Validate() error { return o.validErr }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApp_ConfigFileAndFlagPrecedence(t *testing.T) {
	t.Setenv("HF_TOKEN", "hf_secret")
	cfg := writeConfig(t, `
server:
  addr: ":9000"
model:
  api-key: "${HF_TOKEN}"
  top-k: 7
`)

	opts := &testOptions{}
	ran := false
	a := NewApp(WithName("test"), WithNoVersion(), WithOptions(opts), WithRunFunc(func() error {
		ran = true
		return nil
	}))
	a.Command().SetArgs([]string{"--config", cfg, "--model.top-k", "5"})

	require.NoError(t, a.Command().Execute())
	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, ":9000", opts.Server.Addr)
	assert.Equal(t, "hf_secret", opts.Model.APIKey)
	assert.Equal(t, 5, opts.Model.TopK)
}

func TestApp_ValidateErrorStopsRun(t *testing.T) {
	opts := &testOptions{validErr: errors.New("bad options")}
	ran := false
	a := NewApp(WithName("test"), WithNoVersion(), WithNoConfig(), WithOptions(opts),
		WithRunFunc(func() error { ran = true; return nil }))
	a.Command().SetArgs([]string{})

	err := a.Command().Execute()
	assert.EqualError(t, err, "bad options")
	assert.False(t, ran)
}

func TestApp_UnknownVariableKept(t *testing.T) {
	cfg := writeConfig(t, "model:\n  api-key: \"${CLINRAG_TEST_UNSET_VAR}\"\n")

	opts := &testOptions{}
	a := NewApp(WithName("test"), WithNoVersion(), WithOptions(opts))
	a.Command().SetArgs([]string{"-c", cfg})

	require.NoError(t, a.Command().Execute())
	assert.Equal(t, "${CLINRAG_TEST_UNSET_VAR}", opts.Model.APIKey)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "CLIN_RAG", envPrefix("clin-rag"))
	assert.Equal(t, []string{"a", "b"}, splitSliceFlag("[a,b]"))
	assert.Nil(t, splitSliceFlag("[]"))
}
