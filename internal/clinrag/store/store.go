package store

import (
	"context"
)

// Chunk 表示文档块。
type Chunk struct {
	// ID 文档块 ID。
	ID string
	// DocumentID 所属文档 ID。
	DocumentID string
	// DocumentName 文档名称。
	DocumentName string
	// Section 所属章节。
	Section string
	// Content 文档内容。
	Content string
	// Embedding 嵌入向量。
	Embedding []float32
}

// SearchResult 表示检索结果。
type SearchResult struct {
	// ID 文档块 ID。
	ID string `json:"id"`
	// DocumentID 所属文档 ID。
	DocumentID string `json:"document_id"`
	// DocumentName 文档名称。
	DocumentName string `json:"document_name"`
	// Section 所属章节。
	Section string `json:"section,omitempty"`
	// Content 文档内容。
	Content string `json:"content"`
	// Score 相似度分数，1/(1+Distance)，越大越相似。
	Score float32 `json:"score"`
	// Distance 平方欧氏距离。
	Distance float32 `json:"distance"`
	// Rank 结果排名，从 0 开始。
	Rank int `json:"rank"`
}

// CollectionConfig 集合配置。
type CollectionConfig struct {
	// Name 集合名称。
	Name string
	// Description 集合描述。
	Description string
	// Dimension 向量维度。
	Dimension int
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// CreateCollection 创建集合，已存在且维度一致时为空操作。
	CreateCollection(ctx context.Context, config *CollectionConfig) error

	// Insert 批量插入文档块，返回按插入顺序排列的 ID。
	Insert(ctx context.Context, collection string, chunks []*Chunk) ([]string, error)

	// Search 精确 L2 检索，按距离升序返回。
	Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error)

	// GetStats 获取集合中的行数。
	GetStats(ctx context.Context, collection string) (int64, error)

	// DropCollection 删除集合及其全部数据。
	DropCollection(ctx context.Context, collection string) error

	// Close 关闭连接。
	Close(ctx context.Context) error
}

// ScoreFromDistance 将 L2 距离转换为越大越好的相似度分数。
func ScoreFromDistance(d float32) float32 {
	return 1 / (1 + d)
}
