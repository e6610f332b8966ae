// Package logger provides logger configuration options.
package logger

import (
	"fmt"
	"strings"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	"github.com/kart-io/clinrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

var levels = []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// Options wraps option.LogOption so it can be registered as command-line
// flags. Service logs default to JSON on stdout.
type Options struct {
	*option.LogOption
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	o := option.DefaultLogOption()
	o.Format = "json"
	if o.OTLP == nil {
		o.OTLP = &option.OTLPOption{}
	}
	if o.OTLP.Protocol == "" {
		o.OTLP.Protocol = "grpc"
	}
	if o.Rotation == nil {
		o.Rotation = &option.RotationOption{MaxSize: 100, MaxAge: 15, MaxBackups: 30, Compress: true}
	}
	return &Options{LogOption: o}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "log."
	fs.StringVar(&o.Engine, p+"engine", o.Engine, "Logging engine (zap|slog).")
	fs.StringVar(&o.Level, p+"level", o.Level, "Log level ("+strings.Join(levels, "|")+").")
	fs.StringVar(&o.Format, p+"format", o.Format, "Log format (json|console).")
	fs.StringSliceVar(&o.OutputPaths, p+"output-paths", o.OutputPaths, "Output paths for logs.")
	fs.BoolVar(&o.Development, p+"development", o.Development, "Enable development mode.")
	fs.BoolVar(&o.DisableCaller, p+"disable-caller", o.DisableCaller, "Disable caller detection.")
	fs.BoolVar(&o.DisableStacktrace, p+"disable-stacktrace", o.DisableStacktrace, "Disable stacktrace capture.")

	fs.StringVar(&o.OTLPEndpoint, p+"otlp-endpoint", o.OTLPEndpoint, "OTLP endpoint for log export; empty disables it.")
	fs.StringVar(&o.OTLP.Protocol, p+"otlp.protocol", o.OTLP.Protocol, "OTLP protocol (grpc|http).")

	fs.IntVar(&o.Rotation.MaxSize, p+"rotation.max-size", o.Rotation.MaxSize, "Maximum size in MB of a log file before rotation.")
	fs.IntVar(&o.Rotation.MaxAge, p+"rotation.max-age", o.Rotation.MaxAge, "Maximum number of days to retain rotated files.")
	fs.IntVar(&o.Rotation.MaxBackups, p+"rotation.max-backups", o.Rotation.MaxBackups, "Maximum number of rotated files to retain.")
	fs.BoolVar(&o.Rotation.Compress, p+"rotation.compress", o.Rotation.Compress, "Gzip rotated log files.")
}

// Validate validates the logger options.
func (o *Options) Validate() []error {
	var errs []error
	if o.Level != "" && !containsFold(levels, o.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %s, got %q", strings.Join(levels, ", "), o.Level))
	}
	if err := o.LogOption.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Complete normalises the level name.
func (o *Options) Complete() error {
	o.Level = strings.ToUpper(strings.TrimSpace(o.Level))
	return nil
}

// Init builds a logger from the options and installs it as the global logger.
func (o *Options) Init() error {
	log, err := o.CreateLogger()
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	return nil
}

// CreateLogger creates a new logger instance based on the options.
func (o *Options) CreateLogger() (core.Logger, error) {
	return logger.New(o.LogOption)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
