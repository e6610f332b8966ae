package resilience

import (
	"context"

	"github.com/kart-io/clinrag/pkg/llm"
)

// EmbeddingProvider 带熔断的 Embedding 供应商包装器。
type EmbeddingProvider struct {
	llm.EmbeddingProvider
	breaker *Breaker
}

// WrapEmbedding 为 Embedding 供应商添加熔断保护。
func WrapEmbedding(p llm.EmbeddingProvider, config *Config) *EmbeddingProvider {
	return &EmbeddingProvider{EmbeddingProvider: p, breaker: NewBreaker(p.Name()+"-embed", config)}
}

// Embed 为多个文本生成向量嵌入。
func (r *EmbeddingProvider) Embed(ctx context.Context, texts []string) (out [][]float32, err error) {
	err = r.breaker.Do(func() error {
		out, err = r.EmbeddingProvider.Embed(ctx, texts)
		return err
	})
	return out, err
}

// EmbedSingle 为单个文本生成向量嵌入。
func (r *EmbeddingProvider) EmbedSingle(ctx context.Context, text string) (out []float32, err error) {
	err = r.breaker.Do(func() error {
		out, err = r.EmbeddingProvider.EmbedSingle(ctx, text)
		return err
	})
	return out, err
}

// Breaker 返回熔断器（用于状态查询）。
func (r *EmbeddingProvider) Breaker() *Breaker { return r.breaker }

// ChatProvider 带熔断的生成供应商包装器。
type ChatProvider struct {
	llm.ChatProvider
	breaker *Breaker
}

// WrapChat 为生成供应商添加熔断保护。
func WrapChat(p llm.ChatProvider, config *Config) *ChatProvider {
	return &ChatProvider{ChatProvider: p, breaker: NewBreaker(p.Name()+"-chat", config)}
}

// Chat 进行多轮对话。
func (r *ChatProvider) Chat(ctx context.Context, messages []llm.Message) (out string, err error) {
	err = r.breaker.Do(func() error {
		out, err = r.ChatProvider.Chat(ctx, messages)
		return err
	})
	return out, err
}

// Generate 根据提示生成文本。
func (r *ChatProvider) Generate(ctx context.Context, prompt, systemPrompt string) (out string, err error) {
	err = r.breaker.Do(func() error {
		out, err = r.ChatProvider.Generate(ctx, prompt, systemPrompt)
		return err
	})
	return out, err
}

// Breaker 返回熔断器。
func (r *ChatProvider) Breaker() *Breaker { return r.breaker }

// ClassifierProvider 带熔断的分类供应商包装器。
type ClassifierProvider struct {
	llm.ClassifierProvider
	breaker *Breaker
}

// WrapClassifier 为分类供应商添加熔断保护。
func WrapClassifier(p llm.ClassifierProvider, config *Config) *ClassifierProvider {
	return &ClassifierProvider{ClassifierProvider: p, breaker: NewBreaker(p.Name()+"-classify", config)}
}

// Classify 对文本进行分类。
func (r *ClassifierProvider) Classify(ctx context.Context, text string) (out []llm.Label, err error) {
	err = r.breaker.Do(func() error {
		out, err = r.ClassifierProvider.Classify(ctx, text)
		return err
	})
	return out, err
}

// Breaker 返回熔断器。
func (r *ClassifierProvider) Breaker() *Breaker { return r.breaker }
