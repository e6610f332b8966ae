package store

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/clinrag/pkg/component/milvus"
)

func TestSortHits(t *testing.T) {
	hits := []milvus.SearchResult{
		{ID: 9, Score: 0.5},
		{ID: 4, Score: 0.1},
		{ID: 7, Score: 0.5},
		{ID: 2, Score: 0.5},
		{ID: 8, Score: 0.1},
	}
	sortHits(hits)

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []int64{4, 8, 2, 7, 9}, ids)
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "guide.txt", truncateBytes("guide.txt", maxLabelBytes))

	long := strings.Repeat("a", 300) + ".pdf"
	assert.Len(t, truncateBytes(long, maxLabelBytes), maxLabelBytes)

	// 254 ASCII bytes followed by a 3-byte rune must not be split
	mixed := strings.Repeat("b", 254) + "糖尿病.txt"
	got := truncateBytes(mixed, maxLabelBytes)
	assert.Equal(t, strings.Repeat("b", 254), got)
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, "糖", truncateBytes("糖尿病", 4))
	assert.Empty(t, truncateBytes("糖", 2))
}
