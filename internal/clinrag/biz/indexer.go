package biz

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/clinrag/internal/clinrag/store"
	"github.com/kart-io/clinrag/internal/model"
	"github.com/kart-io/clinrag/internal/pkg/rag/docutil"
	"github.com/kart-io/clinrag/pkg/id"
	ctxlog "github.com/kart-io/clinrag/pkg/infra/logger"
	"github.com/kart-io/clinrag/pkg/infra/pool"
	"github.com/kart-io/clinrag/pkg/infra/tracing"
	"github.com/kart-io/clinrag/pkg/llm"
	"github.com/kart-io/clinrag/pkg/utils/errors"
)

// IndexerConfig 索引器配置。
type IndexerConfig struct {
	// ChunkSize 文本块大小（字符数）。
	ChunkSize int
	// ChunkOverlap 块重叠大小。
	ChunkOverlap int
	// MinChunkRunes 块的最少非空白字符数。
	MinChunkRunes int
	// BatchSize 每次嵌入请求的块数。
	BatchSize int
	// Collection 集合名称。
	Collection string
}

// DefaultIndexerConfig 返回默认索引器配置。
func DefaultIndexerConfig() *IndexerConfig {
	return &IndexerConfig{
		ChunkSize:     docutil.DefaultChunkSize,
		ChunkOverlap:  docutil.DefaultChunkOverlap,
		MinChunkRunes: docutil.DefaultMinChunkRunes,
		BatchSize:     16,
		Collection:    "clinrag_chunks",
	}
}

// Indexer 负责文档分块、嵌入与写入向量索引。
type Indexer struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	pool          *pool.Pool
	config        *IndexerConfig
}

// NewIndexer 创建索引器实例。
func NewIndexer(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, p *pool.Pool, config *IndexerConfig) *Indexer {
	if config == nil {
		config = DefaultIndexerConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 16
	}
	return &Indexer{
		store:         vectorStore,
		embedProvider: embedProvider,
		pool:          p,
		config:        config,
	}
}

// IndexDocument 对文档全文分块、嵌入并替换当前索引。
// 上传新文档会清空之前的索引。
func (i *Indexer) IndexDocument(ctx context.Context, name, text string) (*model.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "clinrag.index",
		attribute.String(tracing.AttrDocumentName, name))
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, errors.ErrEmptyDocument
	}

	contents := docutil.Chunk(text, i.config.ChunkSize, i.config.ChunkOverlap, i.config.MinChunkRunes)
	if len(contents) == 0 {
		return nil, errors.ErrEmptyDocument.WithMessagef("document %s has no chunk long enough to index", name)
	}

	start := time.Now()
	embeddings, err := i.embed(ctx, contents)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	dim := len(embeddings[0])

	doc := &model.Document{
		ID:        id.New(),
		Name:      name,
		Chars:     len([]rune(text)),
		ChunkNum:  len(contents),
		Dimension: dim,
	}
	if kind, ok := docutil.DetectKind(name); ok {
		doc.Kind = string(kind)
	}

	chunks := make([]*store.Chunk, len(contents))
	for idx, content := range contents {
		chunks[idx] = &store.Chunk{
			ID:           doc.ID + "-" + strconv.Itoa(idx),
			DocumentID:   doc.ID,
			DocumentName: name,
			Section:      "chunk " + strconv.Itoa(idx+1),
			Content:      content,
			Embedding:    embeddings[idx],
		}
	}

	if err := i.replace(ctx, dim, chunks); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	doc.IndexedAt = time.Now()
	span.SetAttributes(
		attribute.String(tracing.AttrDocumentID, doc.ID),
		attribute.Int(tracing.AttrChunkCount, len(chunks)),
	)
	ctxlog.From(ctx).Infow("Document indexed",
		ctxlog.FieldDocument, doc.ID,
		"document_name", name,
		"chunks", len(chunks),
		"dimension", dim,
		"elapsed", time.Since(start).String(),
	)
	return doc, nil
}

// embed 将块按批次提交到工作池并发嵌入，结果与输入顺序一致。
func (i *Indexer) embed(ctx context.Context, contents []string) ([][]float32, error) {
	batchSize := i.config.BatchSize
	batches := (len(contents) + batchSize - 1) / batchSize
	out := make([][]float32, len(contents))

	err := i.pool.Run(ctx, batches, func(ctx context.Context, b int) error {
		lo := b * batchSize
		hi := min(lo+batchSize, len(contents))
		vectors, err := i.embedProvider.Embed(ctx, contents[lo:hi])
		if err != nil {
			return fmt.Errorf("batch %d: %w", b, err)
		}
		if len(vectors) != hi-lo {
			return fmt.Errorf("batch %d: expected %d embeddings, got %d", b, hi-lo, len(vectors))
		}
		copy(out[lo:hi], vectors)
		return nil
	})
	if err != nil {
		return nil, errors.ErrEmbeddingFailed.WithCause(err)
	}

	dim := len(out[0])
	if dim == 0 {
		return nil, errors.ErrEmbeddingFailed.WithMessage("embedding provider returned empty vectors")
	}
	for idx, v := range out {
		if len(v) != dim {
			return nil, errors.ErrDimensionMismatch.WithMessagef(
				"chunk %d has dimension %d, expected %d", idx, len(v), dim)
		}
	}
	return out, nil
}

// replace 删除旧集合并写入新文档的全部块。
func (i *Indexer) replace(ctx context.Context, dim int, chunks []*store.Chunk) error {
	collection := i.config.Collection
	if err := i.store.DropCollection(ctx, collection); err != nil {
		return errors.ErrIndexFailed.WithCause(err)
	}
	if err := i.store.CreateCollection(ctx, &store.CollectionConfig{
		Name:        collection,
		Description: "clinical document chunks",
		Dimension:   dim,
	}); err != nil {
		return errors.ErrIndexFailed.WithCause(err)
	}
	if _, err := i.store.Insert(ctx, collection, chunks); err != nil {
		return errors.ErrIndexFailed.WithCause(err)
	}
	return nil
}
