package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/clinrag/pkg/utils/errors"
)

func TestFlat_Search(t *testing.T) {
	f := NewFlat(2)
	first, err := f.Add([]float32{0, 0}, []float32{3, 4}, []float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	assert.Equal(t, 4, f.Len())

	hits, err := f.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, Hit{Row: 0, Distance: 0}, hits[0])
	// rows 2 and 3 tie at distance 1; lower row first
	assert.Equal(t, Hit{Row: 2, Distance: 1}, hits[1])
	assert.Equal(t, Hit{Row: 3, Distance: 1}, hits[2])
}

func TestFlat_SearchBounds(t *testing.T) {
	f := NewFlat(2)

	hits, err := f.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = f.Add([]float32{1, 1}, []float32{2, 2})
	require.NoError(t, err)

	hits, err = f.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.InDelta(t, 8.0, hits[1].Distance, 1e-6)

	hits, err = f.Search([]float32{0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = f.Search([]float32{0}, 1)
	assert.True(t, errors.IsCode(err, errors.ErrDimensionMismatch.Code))
}

func TestFlat_AddDimensionMismatch(t *testing.T) {
	f := NewFlat(3)
	_, err := f.Add([]float32{1, 2, 3}, []float32{1, 2})
	require.Error(t, err)
	assert.Equal(t, 0, f.Len(), "a rejected batch must not be partially added")
}

func TestFlat_Vector(t *testing.T) {
	f := NewFlat(2)
	_, _ = f.Add([]float32{1, 2})

	v, ok := f.Vector(0)
	require.True(t, ok)
	v[0] = 9
	again, _ := f.Vector(0)
	assert.Equal(t, []float32{1, 2}, again)

	_, ok = f.Vector(1)
	assert.False(t, ok)
}

func TestFlatIndex_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewFlatIndex()

	cfg := &CollectionConfig{Name: "chunks", Dimension: 2}
	require.NoError(t, s.CreateCollection(ctx, cfg))
	require.NoError(t, s.CreateCollection(ctx, cfg), "create is idempotent")

	err := s.CreateCollection(ctx, &CollectionConfig{Name: "chunks", Dimension: 3})
	assert.True(t, errors.IsCode(err, errors.ErrDimensionMismatch.Code))

	ids, err := s.Insert(ctx, "chunks", []*Chunk{
		{DocumentID: "d1", DocumentName: "a.pdf", Content: "far", Embedding: []float32{10, 10}},
		{DocumentID: "d1", DocumentName: "a.pdf", Content: "near", Embedding: []float32{1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, ids)

	n, err := s.GetStats(ctx, "chunks")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	results, err := s.Search(ctx, "chunks", []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Content)
	assert.Equal(t, "1", results[0].ID)
	assert.InDelta(t, 2.0, results[0].Distance, 1e-6)
	assert.InDelta(t, 1.0/3.0, results[0].Score, 1e-6)
	assert.Equal(t, 0, results[0].Rank)

	require.NoError(t, s.DropCollection(ctx, "chunks"))
	_, err = s.GetStats(ctx, "chunks")
	assert.True(t, errors.IsCode(err, errors.ErrCollectionNotFound.Code))
}

func TestFlatIndex_InsertErrors(t *testing.T) {
	ctx := context.Background()
	s := NewFlatIndex()

	_, err := s.Insert(ctx, "missing", []*Chunk{{Embedding: []float32{1}}})
	assert.True(t, errors.IsCode(err, errors.ErrCollectionNotFound.Code))

	require.NoError(t, s.CreateCollection(ctx, &CollectionConfig{Name: "c", Dimension: 2}))
	_, err = s.Insert(ctx, "c", []*Chunk{{Embedding: []float32{1, 2, 3}}})
	assert.True(t, errors.IsCode(err, errors.ErrDimensionMismatch.Code))

	err = s.CreateCollection(ctx, &CollectionConfig{Name: "bad", Dimension: 0})
	assert.Error(t, err)
}

func TestFlatIndex_KeepsExplicitIDs(t *testing.T) {
	ctx := context.Background()
	s := NewFlatIndex()
	require.NoError(t, s.CreateCollection(ctx, &CollectionConfig{Name: "c", Dimension: 1}))

	ids, err := s.Insert(ctx, "c", []*Chunk{{ID: "chunk-a", Embedding: []float32{1}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk-a"}, ids)
}
