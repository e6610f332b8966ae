// Package model provides the data models of the clinical RAG assistant.
package model

import (
	"time"
)

// Document is the document currently backing the chunk index.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Chars     int       `json:"chars"`
	ChunkNum  int       `json:"chunk_num"`
	Dimension int       `json:"dimension"`
	IndexedAt time.Time `json:"indexed_at"`
}

// ChunkSource is a retrieved chunk returned alongside an answer.
type ChunkSource struct {
	ID           string  `json:"id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Section      string  `json:"section,omitempty"`
	Content      string  `json:"content"`
	Score        float32 `json:"score"`
	Distance     float32 `json:"distance"`
}
