// Package clinvec provides clinical code embedding index options.
package clinvec

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/clinrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the ClinVec PheCode index.
type Options struct {
	// Enabled loads the index at startup.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// EmbeddingsPath is the comma-separated embedding matrix.
	EmbeddingsPath string `json:"embeddings-path" mapstructure:"embeddings-path"`

	// NodesPath is the tab-separated node metadata file.
	NodesPath string `json:"nodes-path" mapstructure:"nodes-path"`

	// TopK is the number of neighbours rendered per extracted code.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Watch reloads both files when either changes.
	Watch bool `json:"watch" mapstructure:"watch"`

	// ReloadDebounce coalesces bursts of file events.
	ReloadDebounce time.Duration `json:"reload-debounce" mapstructure:"reload-debounce"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Enabled:        true,
		EmbeddingsPath: "ClinVec_phecode.csv",
		NodesPath:      "ClinGraph_nodes.csv",
		TopK:           3,
		ReloadDebounce: 500 * time.Millisecond,
	}
}

// AddFlags adds flags for ClinVec options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "clinvec."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Load the ClinVec PheCode index.")
	fs.StringVar(&o.EmbeddingsPath, p+"embeddings-path", o.EmbeddingsPath, "ClinVec embedding matrix (CSV).")
	fs.StringVar(&o.NodesPath, p+"nodes-path", o.NodesPath, "ClinGraph node metadata (TSV).")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Neighbours rendered per extracted PheCode.")
	fs.BoolVar(&o.Watch, p+"watch", o.Watch, "Reload the index when the files change.")
	fs.DurationVar(&o.ReloadDebounce, p+"reload-debounce", o.ReloadDebounce, "Debounce window for file change events.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.EmbeddingsPath == "" {
		errs = append(errs, fmt.Errorf("clinvec.embeddings-path is required"))
	}
	if o.NodesPath == "" {
		errs = append(errs, fmt.Errorf("clinvec.nodes-path is required"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("clinvec.top-k must be positive"))
	}
	return errs
}
