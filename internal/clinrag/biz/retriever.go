package biz

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/clinrag/internal/clinrag/store"
	"github.com/kart-io/clinrag/pkg/infra/tracing"
	"github.com/kart-io/clinrag/pkg/llm"
	"github.com/kart-io/clinrag/pkg/utils/errors"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 返回的文档块数量。
	TopK int
	// Collection 集合名称。
	Collection string
}

// RetrievalResult 表示检索结果。
type RetrievalResult struct {
	// Results 按距离升序排列的文档块。
	Results []*store.SearchResult
	// Context 文档块内容以换行连接。
	Context string
}

// Retriever 负责文档块检索。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
	}
}

// TopChunks 嵌入问题并检索最近的 TopK 个文档块。
func (r *Retriever) TopChunks(ctx context.Context, question string) (*RetrievalResult, error) {
	ctx, span := tracing.StartSpan(ctx, "clinrag.retrieve",
		attribute.Int(tracing.AttrTopK, r.config.TopK))
	defer span.End()

	vec, err := r.embedProvider.EmbedSingle(ctx, question)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.ErrEmbeddingFailed.WithCause(err)
	}

	results, err := r.store.Search(ctx, r.config.Collection, vec, r.config.TopK)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, errors.ErrRetrievalFailed.WithCause(err)
	}

	contents := make([]string, len(results))
	for i, res := range results {
		contents[i] = res.Content
	}
	span.SetAttributes(attribute.Int(tracing.AttrChunkCount, len(results)))

	return &RetrievalResult{
		Results: results,
		Context: strings.Join(contents, "\n"),
	}, nil
}

// CodeRetriever 根据问题中的临床编码检索相似编码上下文。
type CodeRetriever interface {
	Context(question string, k int) (string, error)
}

// FuseContext 合并文档块上下文与编码上下文，编码上下文为空时也保留分隔换行。
func FuseContext(chunkContext, codeContext string) string {
	return chunkContext + "\n" + codeContext
}
