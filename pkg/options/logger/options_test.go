package logger

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Defaults(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, "json", o.Format)
	assert.Empty(t, o.Validate())
}

func TestOptions_LevelValidation(t *testing.T) {
	o := NewOptions()
	o.Level = "verbose"
	errs := o.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "log.level")

	o.Level = " warn "
	require.NoError(t, o.Complete())
	assert.Equal(t, "WARN", o.Level)
	assert.Empty(t, o.Validate())
}

func TestOptions_AddFlags(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log.level=DEBUG", "--log.rotation.max-age=3"}))
	assert.Equal(t, "DEBUG", o.Level)
	assert.Equal(t, 3, o.Rotation.MaxAge)

	nested := NewOptions()
	fs = pflag.NewFlagSet("nested", pflag.ContinueOnError)
	nested.AddFlags(fs, "worker")
	assert.NotNil(t, fs.Lookup("worker.log.format"))
}
