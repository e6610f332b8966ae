package store

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/kart-io/clinrag/pkg/utils/errors"
)

// Hit 是原始向量索引的一条检索命中。
type Hit struct {
	// Row 行号，即插入顺序。
	Row int
	// Distance 平方欧氏距离。
	Distance float32
}

// Flat 是精确 L2 暴力检索索引，行号等于插入顺序。
// Flat 本身不加锁，并发访问由调用方负责。
type Flat struct {
	dim     int
	vectors []float32
}

// NewFlat 创建指定维度的平坦索引。
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Dim 返回向量维度。
func (f *Flat) Dim() int { return f.dim }

// Len 返回行数。
func (f *Flat) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.vectors) / f.dim
}

// Add 追加向量，返回第一条新向量的行号。
func (f *Flat) Add(vectors ...[]float32) (int, error) {
	for i, v := range vectors {
		if len(v) != f.dim {
			return 0, errors.ErrDimensionMismatch.WithMessagef(
				"vector %d has dimension %d, index expects %d", i, len(v), f.dim)
		}
	}
	first := f.Len()
	for _, v := range vectors {
		f.vectors = append(f.vectors, v...)
	}
	return first, nil
}

// Vector 返回指定行的向量副本。
func (f *Flat) Vector(row int) ([]float32, bool) {
	if row < 0 || row >= f.Len() {
		return nil, false
	}
	out := make([]float32, f.dim)
	copy(out, f.vectors[row*f.dim:(row+1)*f.dim])
	return out, true
}

// Search 返回距离 query 最近的 k 行，按距离升序，距离相同时行号小者优先。
// k 大于行数时返回全部行，k <= 0 或空索引返回空切片。
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, errors.ErrDimensionMismatch.WithMessagef(
			"query has dimension %d, index expects %d", len(query), f.dim)
	}

	hits := make([]Hit, n)
	for row := 0; row < n; row++ {
		hits[row] = Hit{Row: row, Distance: squaredL2(query, f.vectors[row*f.dim:(row+1)*f.dim])}
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Row, b.Row)
	})
	if k < n {
		hits = hits[:k]
	}
	return hits, nil
}

// Reset 清空索引，保留维度。
func (f *Flat) Reset() {
	f.vectors = nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// FlatIndex 是基于 Flat 的进程内 VectorStore 实现。
type FlatIndex struct {
	mu          sync.RWMutex
	collections map[string]*flatCollection
}

type flatCollection struct {
	index  *Flat
	chunks []*Chunk
}

// NewFlatIndex 创建进程内向量存储。
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{collections: make(map[string]*flatCollection)}
}

// CreateCollection 创建集合。
func (s *FlatIndex) CreateCollection(_ context.Context, config *CollectionConfig) error {
	if config == nil || config.Name == "" {
		return errors.ErrInvalidParam.WithMessage("collection name is required")
	}
	if config.Dimension <= 0 {
		return errors.ErrInvalidParam.WithMessagef("invalid dimension %d", config.Dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[config.Name]; ok {
		if c.index.Dim() != config.Dimension {
			return errors.ErrDimensionMismatch.WithMessagef(
				"collection %s exists with dimension %d, requested %d",
				config.Name, c.index.Dim(), config.Dimension)
		}
		return nil
	}
	s.collections[config.Name] = &flatCollection{index: NewFlat(config.Dimension)}
	return nil
}

// Insert 插入文档块，未设置 ID 的块以行号作为 ID。
func (s *FlatIndex) Insert(_ context.Context, collection string, chunks []*Chunk) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, errors.ErrCollectionNotFound.WithMessagef("collection %s not found", collection)
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		vectors[i] = ch.Embedding
	}
	first, err := c.index.Add(vectors...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		stored := *ch
		if stored.ID == "" {
			stored.ID = strconv.Itoa(first + i)
		}
		stored.Embedding = nil
		c.chunks = append(c.chunks, &stored)
		ids[i] = stored.ID
	}
	return ids, nil
}

// Search 执行精确 L2 检索。
func (s *FlatIndex) Search(_ context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, errors.ErrCollectionNotFound.WithMessagef("collection %s not found", collection)
	}

	hits, err := c.index.Search(embedding, topK)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, len(hits))
	for i, h := range hits {
		ch := c.chunks[h.Row]
		results[i] = &SearchResult{
			ID:           ch.ID,
			DocumentID:   ch.DocumentID,
			DocumentName: ch.DocumentName,
			Section:      ch.Section,
			Content:      ch.Content,
			Distance:     h.Distance,
			Score:        ScoreFromDistance(h.Distance),
			Rank:         i,
		}
	}
	return results, nil
}

// GetStats 返回集合行数。
func (s *FlatIndex) GetStats(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, errors.ErrCollectionNotFound.WithMessagef("collection %s not found", collection)
	}
	return int64(c.index.Len()), nil
}

// DropCollection 删除集合，集合不存在时为空操作。
func (s *FlatIndex) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Close 释放全部集合。
func (s *FlatIndex) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*flatCollection)
	return nil
}

var _ VectorStore = (*FlatIndex)(nil)
