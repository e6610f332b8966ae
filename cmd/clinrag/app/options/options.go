// Package options contains flags and options for initializing the ClinRAG server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/clinrag/internal/clinrag"
	"github.com/kart-io/clinrag/pkg/infra/app/cliflag"
	"github.com/kart-io/clinrag/pkg/infra/tracing"
	genericoptions "github.com/kart-io/clinrag/pkg/options"
	cacheopts "github.com/kart-io/clinrag/pkg/options/cache"
	ragopts "github.com/kart-io/clinrag/pkg/options/clinrag"
	clinvecopts "github.com/kart-io/clinrag/pkg/options/clinvec"
	httpopts "github.com/kart-io/clinrag/pkg/options/http"
	llmopts "github.com/kart-io/clinrag/pkg/options/llm"
	logopts "github.com/kart-io/clinrag/pkg/options/logger"
	milvusopts "github.com/kart-io/clinrag/pkg/options/milvus"
	poolopts "github.com/kart-io/clinrag/pkg/options/pool"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracing.Options `json:"tracing" mapstructure:"tracing"`

	// RAGOptions contains chunking, retrieval and session configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// ClinVecOptions contains the clinical code index configuration.
	ClinVecOptions *clinvecopts.Options `json:"clinvec" mapstructure:"clinvec"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// GeneratorOptions contains answer generation provider configuration.
	GeneratorOptions *llmopts.ProviderOptions `json:"generator" mapstructure:"generator"`

	// NLIOptions contains NLI classifier provider configuration.
	NLIOptions *llmopts.ProviderOptions `json:"nli" mapstructure:"nli"`

	// MilvusOptions contains Milvus configuration, used when rag.store is milvus.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// PoolOptions contains worker pool configuration.
	PoolOptions *poolopts.Options `json:"pool" mapstructure:"pool"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		TracingOptions:   tracing.NewOptions(),
		RAGOptions:       ragopts.NewOptions(),
		ClinVecOptions:   clinvecopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		GeneratorOptions: llmopts.NewGeneratorOptions(),
		NLIOptions:       llmopts.NewNLIOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		PoolOptions:      poolopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.ClinVecOptions.AddFlags(fss.FlagSet("clinvec"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.GeneratorOptions.AddFlags(fss.FlagSet("generator"), "generator")
	o.NLIOptions.AddFlags(fss.FlagSet("nli"), "nli")
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.PoolOptions.AddFlags(fss.FlagSet("pool"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.LogOptions.Complete(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := genericoptions.ValidateAll(
		o.HTTPOptions,
		o.LogOptions,
		o.TracingOptions,
		o.RAGOptions,
		o.ClinVecOptions,
		o.EmbeddingOptions,
		o.GeneratorOptions,
		o.NLIOptions,
		o.CacheOptions,
		o.PoolOptions,
	)
	if o.RAGOptions.Store == ragopts.StoreMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a clinrag.Config based on ServerOptions.
func (o *ServerOptions) Config() (*clinrag.Config, error) {
	return &clinrag.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		TracingOptions:   o.TracingOptions,
		RAGOptions:       o.RAGOptions,
		ClinVecOptions:   o.ClinVecOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		GeneratorOptions: o.GeneratorOptions,
		NLIOptions:       o.NLIOptions,
		MilvusOptions:    o.MilvusOptions,
		CacheOptions:     o.CacheOptions,
		PoolOptions:      o.PoolOptions,
	}, nil
}
