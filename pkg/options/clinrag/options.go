// Package clinrag provides retrieval pipeline configuration options.
package clinrag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/clinrag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Vector store backends.
const (
	StoreMemory = "memory"
	StoreMilvus = "milvus"
)

// Options contains retrieval, fusion, and evaluation settings.
type Options struct {
	// ChunkSize is the chunk window size in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the number of runes shared by consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MinChunkRunes drops chunks with fewer non-space runes.
	MinChunkRunes int `json:"min-chunk-runes" mapstructure:"min-chunk-runes"`

	// TopK is the number of document chunks retrieved per question.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// EmbedBatchSize is the number of chunks per embedding request.
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// Store selects the chunk index backend (memory, milvus).
	Store string `json:"store" mapstructure:"store"`

	// Collection is the chunk collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// AskTimeout bounds one question turn.
	AskTimeout time.Duration `json:"ask-timeout" mapstructure:"ask-timeout"`

	// NLIMaxTokens truncates the NLI premise/hypothesis input.
	NLIMaxTokens int `json:"nli-max-tokens" mapstructure:"nli-max-tokens"`

	// RecentMetrics is the default number of metrics rows shown.
	RecentMetrics int `json:"recent-metrics" mapstructure:"recent-metrics"`

	// ExportPath is where POST /metrics/export writes the CSV.
	ExportPath string `json:"export-path" mapstructure:"export-path"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:      500,
		ChunkOverlap:   50,
		MinChunkRunes:  20,
		TopK:           3,
		EmbedBatchSize: 16,
		Store:          StoreMemory,
		Collection:     "clinrag_chunks",
		AskTimeout:     60 * time.Second,
		NLIMaxTokens:   512,
		RecentMetrics:  5,
		ExportPath:     "chatbot_metrics.csv",
	}
}

// AddFlags adds flags for the pipeline options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Chunk size in runes.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in runes.")
	fs.IntVar(&o.MinChunkRunes, p+"min-chunk-runes", o.MinChunkRunes, "Drop chunks with fewer non-space runes.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Document chunks retrieved per question.")
	fs.IntVar(&o.EmbedBatchSize, p+"embed-batch-size", o.EmbedBatchSize, "Chunks per embedding request.")
	fs.StringVar(&o.Store, p+"store", o.Store, "Chunk index backend (memory, milvus).")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Chunk collection name.")
	fs.DurationVar(&o.AskTimeout, p+"ask-timeout", o.AskTimeout, "Timeout for one question turn.")
	fs.IntVar(&o.NLIMaxTokens, p+"nli-max-tokens", o.NLIMaxTokens, "Maximum whitespace tokens sent to the NLI model.")
	fs.IntVar(&o.RecentMetrics, p+"recent-metrics", o.RecentMetrics, "Default number of recent metrics rows.")
	fs.StringVar(&o.ExportPath, p+"export-path", o.ExportPath, "Metrics CSV export path.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.embed-batch-size must be positive"))
	}
	if o.Store != StoreMemory && o.Store != StoreMilvus {
		errs = append(errs, fmt.Errorf("rag.store must be %q or %q", StoreMemory, StoreMilvus))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("rag.collection is required"))
	}
	if o.AskTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rag.ask-timeout must be positive"))
	}
	if o.NLIMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("rag.nli-max-tokens must be positive"))
	}
	if o.ExportPath == "" {
		errs = append(errs, fmt.Errorf("rag.export-path is required"))
	}
	return errs
}
