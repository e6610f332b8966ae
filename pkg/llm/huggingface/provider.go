// Package huggingface 提供 HuggingFace Inference API 供应商实现。
// 支持 Feature Extraction（Embedding）、Text2Text 生成以及 NLI 文本分类。
package huggingface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/clinrag/pkg/llm"
	"github.com/kart-io/clinrag/pkg/utils/httpclient"
	"github.com/kart-io/clinrag/pkg/utils/json"
)

// ProviderName 是 HuggingFace 供应商的名称标识符
const ProviderName = "huggingface"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
	llm.RegisterClassifierProvider(ProviderName, func(configMap map[string]any) (llm.ClassifierProvider, error) {
		cfg, err := configFromMap(configMap)
		if err != nil {
			return nil, err
		}
		return NewProviderWithConfig(cfg), nil
	})
}

// Config HuggingFace 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey HuggingFace API Token。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型 ID。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于生成答案的 text2text 模型 ID。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// NLIModel 用于忠实度评估的 NLI 分类模型 ID。
	NLIModel string `json:"nli_model" mapstructure:"nli_model"`

	// MaxNewTokens 单次生成的最大 token 数。
	MaxNewTokens int `json:"max_new_tokens" mapstructure:"max_new_tokens"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// WaitForModel 如果模型正在加载，是否等待。
	WaitForModel bool `json:"wait_for_model" mapstructure:"wait_for_model"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api-inference.huggingface.co",
		EmbedModel:   "sentence-transformers/all-MiniLM-L6-v2",
		ChatModel:    "google/flan-t5-base",
		NLIModel:     "roberta-large-mnli",
		MaxNewTokens: 128,
		Timeout:      120 * time.Second,
		MaxRetries:   3,
		WaitForModel: true,
	}
}

func configFromMap(configMap map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["nli_model"].(string); ok && v != "" {
		cfg.NLIModel = v
	}
	if v, ok := configMap["max_new_tokens"].(int); ok && v > 0 {
		cfg.MaxNewTokens = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["wait_for_model"].(bool); ok {
		cfg.WaitForModel = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("huggingface: api_key 是必需的")
	}
	return cfg, nil
}

// Provider HuggingFace 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var (
	_ llm.Provider           = (*Provider)(nil)
	_ llm.ClassifierProvider = (*Provider)(nil)
)

// NewProvider 从配置 map 创建 HuggingFace 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg, err := configFromMap(configMap)
	if err != nil {
		return nil, err
	}
	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 HuggingFace 供应商。
func NewProviderWithConfig(cfg *Config, opts ...httpclient.Option) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries, opts...),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

func (p *Provider) options() *inferenceOptions {
	if !p.config.WaitForModel {
		return nil
	}
	return &inferenceOptions{WaitForModel: true}
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.config.APIKey}
}

// embeddingRequest HuggingFace Feature Extraction API 请求体。
type embeddingRequest struct {
	Inputs  []string          `json:"inputs"`
	Options *inferenceOptions `json:"options,omitempty"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", p.config.BaseURL, p.config.EmbedModel)
	var raw json.RawMessage
	if err := p.client.PostJSON(ctx, url, p.headers(), embeddingRequest{Inputs: texts, Options: p.options()}, &raw); err != nil {
		return nil, err
	}

	embeddings, err := decodeEmbeddings(raw)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("返回向量数量 %d 与输入数量 %d 不一致", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// decodeEmbeddings 解析 [][]float32，或对 [][][]float32 形式的 token 级嵌入取平均。
func decodeEmbeddings(raw []byte) ([][]float32, error) {
	var embeddings [][]float32
	err := json.Unmarshal(raw, &embeddings)
	if err == nil {
		return embeddings, nil
	}

	var tokenEmbeddings [][][]float32
	if err2 := json.Unmarshal(raw, &tokenEmbeddings); err2 != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	embeddings = make([][]float32, len(tokenEmbeddings))
	for i, tokens := range tokenEmbeddings {
		if len(tokens) == 0 {
			continue
		}
		mean := make([]float32, len(tokens[0]))
		for _, token := range tokens {
			for j, v := range token {
				mean[j] += v
			}
		}
		for j := range mean {
			mean[j] /= float32(len(tokens))
		}
		embeddings[i] = mean
	}
	return embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, errors.New("未返回向量嵌入")
	}
	return embeddings[0], nil
}

// generateRequest HuggingFace Text2Text / Text Generation API 请求体。
type generateRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters generateParams    `json:"parameters"`
	Options    *inferenceOptions `json:"options,omitempty"`
}

type generateParams struct {
	MaxNewTokens int `json:"max_new_tokens,omitempty"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Chat 将多轮消息拼接为单个提示后生成。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return p.generate(ctx, formatMessages(messages))
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	fullPrompt := prompt
	if systemPrompt != "" {
		fullPrompt = systemPrompt + "\n" + prompt
	}
	return p.generate(ctx, fullPrompt)
}

func (p *Provider) generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, p.config.ChatModel)
	req := generateRequest{
		Inputs:     prompt,
		Parameters: generateParams{MaxNewTokens: p.config.MaxNewTokens},
		Options:    p.options(),
	}

	var responses []generateResponse
	if err := p.client.PostJSON(ctx, url, p.headers(), req, &responses); err != nil {
		return "", err
	}
	if len(responses) == 0 {
		return "", errors.New("未返回响应内容")
	}
	return responses[0].GeneratedText, nil
}

// formatMessages 将消息格式化为 "role: content" 行。
func formatMessages(messages []llm.Message) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

type classifyRequest struct {
	Inputs  string            `json:"inputs"`
	Options *inferenceOptions `json:"options,omitempty"`
}

// Classify 调用 text-classification 管道。
// 响应可能是 [[{label,score}]]（每个输入一组）或 [{label,score}]。
func (p *Provider) Classify(ctx context.Context, text string) ([]llm.Label, error) {
	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, p.config.NLIModel)
	var raw json.RawMessage
	if err := p.client.PostJSON(ctx, url, p.headers(), classifyRequest{Inputs: text, Options: p.options()}, &raw); err != nil {
		return nil, err
	}

	var labels []llm.Label
	var nested [][]llm.Label
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) > 0 {
			labels = nested[0]
		}
	} else if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("解析分类响应失败: %w", err)
	}
	if len(labels) == 0 {
		return nil, errors.New("未返回分类结果")
	}

	llm.SortLabels(labels)
	return labels, nil
}
