// Package pool provides worker pool options.
package pool

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/clinrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options sizes the embedding and background worker pools.
type Options struct {
	// EmbedWorkers bounds concurrent embedding batch requests.
	EmbedWorkers int `json:"embed-workers" mapstructure:"embed-workers"`

	// BackgroundWorkers bounds background jobs such as index reloads.
	BackgroundWorkers int `json:"background-workers" mapstructure:"background-workers"`

	// ExpiryDuration is the idle worker lifetime.
	ExpiryDuration time.Duration `json:"expiry-duration" mapstructure:"expiry-duration"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		EmbedWorkers:      4,
		BackgroundWorkers: 2,
		ExpiryDuration:    10 * time.Second,
	}
}

// AddFlags adds flags for pool options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "pool."
	fs.IntVar(&o.EmbedWorkers, p+"embed-workers", o.EmbedWorkers, "Concurrent embedding batch requests.")
	fs.IntVar(&o.BackgroundWorkers, p+"background-workers", o.BackgroundWorkers, "Background job workers.")
	fs.DurationVar(&o.ExpiryDuration, p+"expiry-duration", o.ExpiryDuration, "Idle worker lifetime.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	var errs []error
	if o.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("pool.embed-workers must be positive"))
	}
	if o.BackgroundWorkers <= 0 {
		errs = append(errs, fmt.Errorf("pool.background-workers must be positive"))
	}
	return errs
}
