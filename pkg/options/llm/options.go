// Package llm provides model provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/clinrag/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义模型供应商配置。
// 同一结构用于 embedding、generator 与 nli 三个配置段。
type ProviderOptions struct {
	// Provider 供应商名称（huggingface, ollama, openai, gemini）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址，为空时使用供应商默认值。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// MaxNewTokens 单次生成的最大 token 数（仅生成类模型）。
	MaxNewTokens int `json:"max-new-tokens" mapstructure:"max-new-tokens"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// WaitForModel 模型冷启动时是否等待（HuggingFace）。
	WaitForModel bool `json:"wait-for-model" mapstructure:"wait-for-model"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// BreakerFailures 连续失败多少次后熔断，0 表示不启用熔断。
	BreakerFailures int `json:"breaker-failures" mapstructure:"breaker-failures"`
}

func newProviderOptions(model string) *ProviderOptions {
	return &ProviderOptions{
		Provider:        "huggingface",
		Model:           model,
		Timeout:         120 * time.Second,
		MaxRetries:      3,
		WaitForModel:    true,
		BreakerFailures: 5,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	return newProviderOptions("sentence-transformers/all-MiniLM-L6-v2")
}

// NewGeneratorOptions 创建默认答案生成供应商配置。
func NewGeneratorOptions() *ProviderOptions {
	opts := newProviderOptions("google/flan-t5-base")
	opts.MaxNewTokens = 128
	return opts
}

// NewNLIOptions 创建默认 NLI 分类供应商配置。
func NewNLIOptions() *ProviderOptions {
	return newProviderOptions("roberta-large-mnli")
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	m := map[string]any{
		"api_key":        o.APIKey,
		"embed_model":    o.Model,
		"chat_model":     o.Model,
		"nli_model":      o.Model,
		"timeout":        o.Timeout,
		"max_retries":    o.MaxRetries,
		"wait_for_model": o.WaitForModel,
		"organization":   o.Organization,
	}
	if o.BaseURL != "" {
		m["base_url"] = o.BaseURL
	}
	if o.MaxNewTokens > 0 {
		m["max_new_tokens"] = o.MaxNewTokens
	}
	return m
}

// AddFlags adds flags for provider options. The last prefix names the section,
// e.g. AddFlags(fs, "embedding") registers --embedding.provider.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Model provider (huggingface, ollama, openai, gemini).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.IntVar(&o.MaxNewTokens, p+"max-new-tokens", o.MaxNewTokens, "Maximum generated tokens.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Maximum number of retries.")
	fs.BoolVar(&o.WaitForModel, p+"wait-for-model", o.WaitForModel, "Wait for cold models to load.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "Organization ID (optional).")
	fs.IntVar(&o.BreakerFailures, p+"breaker-failures", o.BreakerFailures, "Consecutive failures before the circuit opens, 0 disables.")
}

// Validate validates the provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	switch o.Provider {
	case "huggingface", "openai", "gemini":
		if o.APIKey == "" {
			errs = append(errs, fmt.Errorf("api-key is required for %s provider", o.Provider))
		}
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max-retries must be non-negative"))
	}
	return errs
}
