// Package llm 提供统一的模型供应商抽象层。
// 支持 Embedding、生成和 NLI 分类使用不同供应商的模型。
package llm

import (
	"context"
	"sort"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Chat 进行多轮对话。
	Chat(ctx context.Context, messages []Message) (string, error)

	// Generate 根据提示生成文本（单轮）。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label 表示分类器输出的一个标签及其置信度。
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ClassifierProvider 定义文本分类（NLI）供应商接口。
type ClassifierProvider interface {
	// Classify 对输入文本分类，返回按置信度降序排列的标签。
	Classify(ctx context.Context, text string) ([]Label, error)

	// Name 返回供应商名称。
	Name() string
}

// SortLabels 按置信度降序排列标签，置信度相同时按标签名排序。
func SortLabels(labels []Label) {
	sort.SliceStable(labels, func(i, j int) bool {
		if labels[i].Score != labels[j].Score {
			return labels[i].Score > labels[j].Score
		}
		return labels[i].Label < labels[j].Label
	})
}

// Provider 同时支持 Embedding 和 Chat 的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}
