package docutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
		ok   bool
	}{
		{"report.PDF", KindPDF, true},
		{"notes.txt", KindText, true},
		{"README.md", KindMarkdown, true},
		{"scan.png", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectKind(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText("a.txt", strings.NewReader("Metformin lowers glucose."))
	require.NoError(t, err)
	assert.Equal(t, "Metformin lowers glucose.", text)

	_, err = ExtractText("a.docx", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestExtractPDF_Invalid(t *testing.T) {
	data := []byte("not a pdf")
	_, err := ExtractPDF(strings.NewReader(string(data)), int64(len(data)))
	assert.Error(t, err)
}

func TestChunk(t *testing.T) {
	text := strings.Repeat("a", 1200)
	chunks := Chunk(text, 500, 50, 20)
	require.Len(t, chunks, 3)
	assert.Len(t, []rune(chunks[0]), 500)
	assert.Len(t, []rune(chunks[1]), 500)
	// starts at 0, 450, 900
	assert.Len(t, []rune(chunks[2]), 300)
}

func TestChunk_Overlap(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := Chunk(text, 10, 3, 1)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcdefghij", chunks[0])
	assert.Equal(t, "hijklmnopq", chunks[1])
	assert.Equal(t, "z", chunks[len(chunks)-1][len(chunks[len(chunks)-1])-1:])
}

func TestChunk_DropsShortChunks(t *testing.T) {
	assert.Empty(t, Chunk("too short", 500, 50, 20))
	assert.Empty(t, Chunk("", 500, 50, 20))
	assert.Empty(t, Chunk("   \n\n   ", 500, 50, 1))

	chunks := Chunk("The HbA1c target for most adults is below seven percent.", 500, 50, 20)
	assert.Len(t, chunks, 1)
}

func TestChunk_Runes(t *testing.T) {
	text := strings.Repeat("糖", 30)
	chunks := Chunk(text, 20, 5, 5)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("糖", 20), chunks[0])
	assert.Equal(t, strings.Repeat("糖", 15), chunks[1])
}

func TestChunk_InvalidParams(t *testing.T) {
	assert.Nil(t, Chunk("abc", 0, 0, 0))
	chunks := Chunk("abcdef", 3, 5, 1)
	require.NotEmpty(t, chunks, "overlap is clamped below size")
	assert.Equal(t, "abc", chunks[0])
}
