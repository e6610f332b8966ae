package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/clinrag/pkg/component/milvus"
	"github.com/kart-io/clinrag/pkg/utils/errors"
)

var chunkOutputFields = []string{"chunk_id", "document_id", "document_name", "section", "content"}

// maxLabelBytes document_name 与 section 字段的 VarChar 长度上限。
const maxLabelBytes = 255

// MilvusStore 实现基于 Milvus FLAT/L2 索引的向量存储。
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// CreateCollection 创建 Milvus 集合，已存在集合的维度必须一致。
func (s *MilvusStore) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	exists, err := s.client.HasCollection(ctx, config.Name)
	if err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	if exists {
		dim, err := s.client.Dimension(ctx, config.Name)
		if err != nil {
			return errors.ErrVectorStore.WithCause(err)
		}
		if dim != config.Dimension {
			return errors.ErrDimensionMismatch.WithMessagef(
				"collection %s exists with dimension %d, requested %d", config.Name, dim, config.Dimension)
		}
		return nil
	}

	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		MetaFields: []milvus.MetaField{
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "document_name", DataType: entity.FieldTypeVarChar, MaxLen: maxLabelBytes},
			{Name: "section", DataType: entity.FieldTypeVarChar, MaxLen: maxLabelBytes},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	if err := s.client.CreateCollection(ctx, schema); err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	return nil
}

// Insert 批量插入文档块。未设置 ID 的块使用 Milvus 自增主键作为 ID。
func (s *MilvusStore) Insert(ctx context.Context, collection string, chunks []*Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"chunk_id":      make([]any, len(chunks)),
		"document_id":   make([]any, len(chunks)),
		"document_name": make([]any, len(chunks)),
		"section":       make([]any, len(chunks)),
		"content":       make([]any, len(chunks)),
	}
	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["chunk_id"][i] = chunk.ID
		metadata["document_id"][i] = chunk.DocumentID
		metadata["document_name"][i] = truncateBytes(chunk.DocumentName, maxLabelBytes)
		metadata["section"][i] = truncateBytes(chunk.Section, maxLabelBytes)
		metadata["content"][i] = chunk.Content
	}

	ids, err := s.client.Insert(ctx, collection, &milvus.InsertData{Embeddings: embeddings, Metadata: metadata})
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(fmt.Errorf("failed to insert into milvus: %w", err))
	}

	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		switch {
		case chunk.ID != "":
			out[i] = chunk.ID
		case i < len(ids):
			out[i] = strconv.FormatInt(ids[i], 10)
		}
	}
	return out, nil
}

// Search 执行精确 L2 检索，Milvus 返回的分数即平方欧氏距离。
// 距离相同的结果按主键升序排列，与插入顺序一致。
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	if topK <= 0 {
		return []*SearchResult{}, nil
	}

	results, err := s.client.Search(ctx, collection, embedding, topK, chunkOutputFields)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(fmt.Errorf("failed to search milvus: %w", err))
	}
	sortHits(results)

	out := make([]*SearchResult, len(results))
	for i, r := range results {
		id := metaString(r.Metadata, "chunk_id")
		if id == "" {
			id = strconv.FormatInt(r.ID, 10)
		}
		out[i] = &SearchResult{
			ID:           id,
			DocumentID:   metaString(r.Metadata, "document_id"),
			DocumentName: metaString(r.Metadata, "document_name"),
			Section:      metaString(r.Metadata, "section"),
			Content:      metaString(r.Metadata, "content"),
			Distance:     r.Score,
			Score:        ScoreFromDistance(r.Score),
			Rank:         i,
		}
	}
	return out, nil
}

// sortHits 按距离升序、主键升序稳定排序。
func sortHits(hits []milvus.SearchResult) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// truncateBytes 按字节上限截断，不拆分多字节字符。
func truncateBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func metaString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// GetStats 获取集合行数。
func (s *MilvusStore) GetStats(ctx context.Context, collection string) (int64, error) {
	n, err := s.client.GetCollectionStats(ctx, collection)
	if err != nil {
		return 0, errors.ErrVectorStore.WithCause(err)
	}
	return n, nil
}

// DropCollection 删除集合。
func (s *MilvusStore) DropCollection(ctx context.Context, collection string) error {
	if err := s.client.DropCollection(ctx, collection); err != nil {
		return errors.ErrVectorStore.WithCause(err)
	}
	return nil
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

var _ VectorStore = (*MilvusStore)(nil)
