package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role of a chat message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the chat history.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Evaluation holds the automated quality scores of an answer.
type Evaluation struct {
	Faithfulness      string  `json:"faithfulness"`
	FaithfulnessScore float64 `json:"faithfulness_score"`
	RelevanceScore    float64 `json:"relevance_score"`
}

// TurnMetrics is the record kept for every answered question.
type TurnMetrics struct {
	ID                string    `json:"id"`
	Question          string    `json:"question"`
	LatencySec        float64   `json:"latency_sec"`
	AnswerLength      int       `json:"answer_length"`
	Faithfulness      string    `json:"faithfulness"`
	FaithfulnessScore float64   `json:"faithfulness_score"`
	RelevanceScore    float64   `json:"relevance_score"`
	CacheHit          bool      `json:"cache_hit"`
	CreatedAt         time.Time `json:"created_at"`
}

// Summary renders the one-line metrics view of the chat page.
func (m TurnMetrics) Summary() string {
	return fmt.Sprintf("Latency: %ss | Length: %d tokens | Faithfulness: %s (%s) | Relevance: %s",
		FormatFloat(m.LatencySec), m.AnswerLength, m.Faithfulness,
		FormatFloat(m.FaithfulnessScore), FormatFloat(m.RelevanceScore))
}

// FormatFloat prints the shortest representation of v that always carries
// a decimal point, e.g. 2 -> "2.0" and 0.988 -> "0.988".
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// AskResult is the answer to one question.
type AskResult struct {
	TurnID       string        `json:"turn_id"`
	Question     string        `json:"question"`
	Answer       string        `json:"answer"`
	Context      string        `json:"context"`
	LatencySec   float64       `json:"latency_sec"`
	AnswerLength int           `json:"answer_length"`
	Evaluation   Evaluation    `json:"evaluation"`
	Sources      []ChunkSource `json:"sources"`
	CacheHit     bool          `json:"cache_hit"`
}
