package biz

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/kart-io/clinrag/internal/model"
)

// CSVHeader 指标导出的表头。
var CSVHeader = []string{"question", "latency_sec", "answer_length", "faithfulness", "faithfulness_score", "relevance_score"}

// Session 进程级问答会话，保存聊天记录与每轮指标。
type Session struct {
	mu      sync.RWMutex
	history []model.ChatMessage
	metrics []model.TurnMetrics
}

// NewSession 创建空会话。
func NewSession() *Session {
	return &Session{}
}

// Append 追加一轮问答。
func (s *Session) Append(user, assistant model.ChatMessage, m model.TurnMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, user, assistant)
	s.metrics = append(s.metrics, m)
}

// History 返回聊天记录副本。
func (s *Session) History() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Metrics 返回全部指标副本。
func (s *Session) Metrics() []model.TurnMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TurnMetrics, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// Recent 返回最近 n 轮指标，按时间顺序。
func (s *Session) Recent(n int) []model.TurnMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return []model.TurnMetrics{}
	}
	start := max(len(s.metrics)-n, 0)
	out := make([]model.TurnMetrics, len(s.metrics)-start)
	copy(out, s.metrics[start:])
	return out
}

// Len 返回已记录的轮数。
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metrics)
}

// Reset 清空聊天记录与指标。
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.metrics = nil
}

// ExportCSV 以 CSV 写出全部指标。
func (s *Session) ExportCSV(w io.Writer) error {
	return writeCSV(w, s.Metrics())
}

func writeCSV(w io.Writer, rows []model.TurnMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, m := range rows {
		if err := cw.Write([]string{
			m.Question,
			model.FormatFloat(m.LatencySec),
			strconv.Itoa(m.AnswerLength),
			m.Faithfulness,
			model.FormatFloat(m.FaithfulnessScore),
			model.FormatFloat(m.RelevanceScore),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFile 将指标写入文件，覆盖已有内容。
func (s *Session) ExportFile(path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	rows := s.Metrics()
	if err := writeCSV(f, rows); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return len(rows), nil
}
