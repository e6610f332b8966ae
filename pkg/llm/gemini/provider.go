// Package gemini 提供基于 google.golang.org/genai SDK 的 Gemini 供应商实现。
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/kart-io/clinrag/pkg/llm"
)

const ProviderName = "gemini"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Gemini 供应商配置。
type Config struct {
	// BaseURL API 基础地址，为空时使用 SDK 默认地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey Google AI API 密钥。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于生成的模型。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// TaskType Embedding 任务类型。
	TaskType string `json:"task_type" mapstructure:"task_type"`

	// MaxNewTokens 单次生成的最大 token 数。
	MaxNewTokens int `json:"max_new_tokens" mapstructure:"max_new_tokens"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		EmbedModel:   "gemini-embedding-001",
		ChatModel:    "gemini-2.0-flash",
		TaskType:     "SEMANTIC_SIMILARITY",
		MaxNewTokens: 128,
		Timeout:      120 * time.Second,
	}
}

// Provider Gemini 供应商实现。
type Provider struct {
	config   *Config
	client   *genai.Client
	taskType genai.TaskType
}

// NewProvider 从配置 map 创建 Gemini 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
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
	if v, ok := configMap["task_type"].(string); ok && v != "" {
		cfg.TaskType = v
	}
	if v, ok := configMap["max_new_tokens"].(int); ok && v > 0 {
		cfg.MaxNewTokens = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}

	return NewProviderWithConfig(context.Background(), cfg)
}

// NewProviderWithConfig 使用结构化配置创建 Gemini 供应商。
func NewProviderWithConfig(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api_key 是必需的")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" || cfg.Timeout > 0 {
		timeout := cfg.Timeout
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL, Timeout: &timeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: 创建客户端失败: %w", err)
	}

	return &Provider{
		config:   cfg,
		client:   client,
		taskType: parseTaskType(cfg.TaskType),
	}, nil
}

func parseTaskType(s string) genai.TaskType {
	switch s {
	case "CLASSIFICATION":
		return genai.TaskTypeClassification
	case "CLUSTERING":
		return genai.TaskTypeClustering
	case "RETRIEVAL_DOCUMENT":
		return genai.TaskTypeRetrievalDocument
	case "RETRIEVAL_QUERY":
		return genai.TaskTypeRetrievalQuery
	case "QUESTION_ANSWERING":
		return genai.TaskTypeQuestionAnswering
	case "FACT_VERIFICATION":
		return genai.TaskTypeFactVerification
	default:
		return genai.TaskTypeSemanticSimilarity
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Embed 为多个文本生成向量嵌入（SDK 原生支持批量）。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := p.client.Models.EmbedContent(ctx, p.config.EmbedModel, contents,
		&genai.EmbedContentRequest{TaskType: p.taskType})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("返回向量数量 %d 与输入数量 %d 不一致", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// toContents 将消息转换为 genai 内容，system 消息单独返回。
func toContents(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, system
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	contents, system := toContents(messages)

	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		MaxOutputTokens:   int32(p.config.MaxNewTokens),
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.config.ChatModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	messages := make([]llm.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return p.Chat(ctx, messages)
}
