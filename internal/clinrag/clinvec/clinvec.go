// Package clinvec 提供基于 ClinVec PheCode 向量的临床编码相似检索。
package clinvec

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/clinrag/pkg/infra/config"
	"github.com/kart-io/clinrag/pkg/infra/pool"
	"github.com/kart-io/clinrag/pkg/utils/errors"
)

// DefaultTopK 每个编码返回的默认近邻数。
const DefaultTopK = 3

// NoMatches 问题中的编码均不在索引中时返回的上下文。
const NoMatches = "No similar codes found."

var codePattern = regexp.MustCompile(`PheCode:\w+`)

// ExtractCodes 按出现顺序返回文本中的所有 PheCode，保留重复项。
func ExtractCodes(text string) []string {
	return codePattern.FindAllString(text, -1)
}

// Neighbor 是一个相似编码。
type Neighbor struct {
	Node
	// Distance 与查询编码的平方欧氏距离。
	Distance float32 `json:"distance"`
	// Rank 排名，从 0 开始。
	Rank int `json:"rank"`
}

// Stats 索引统计。
type Stats struct {
	Loaded    bool      `json:"loaded"`
	Rows      int       `json:"rows"`
	Codes     int       `json:"codes"`
	Dimension int       `json:"dimension"`
	LoadedAt  time.Time `json:"loaded_at,omitzero"`
}

// Index 是可热加载的临床编码索引，读取与替换并发安全。
type Index struct {
	embeddingsPath string
	nodesPath      string

	mu       sync.RWMutex
	snap     *snapshot
	loadedAt time.Time
}

// New 创建索引，尚未加载数据。
func New(embeddingsPath, nodesPath string) *Index {
	return &Index{embeddingsPath: embeddingsPath, nodesPath: nodesPath}
}

// Load 加载两份文件并替换当前索引。加载失败时保留原索引。
func (x *Index) Load() error {
	start := time.Now()
	s, err := load(x.embeddingsPath, x.nodesPath)
	if err != nil {
		return errors.ErrClinVecLoad.WithCause(err)
	}

	x.mu.Lock()
	x.snap = s
	x.loadedAt = time.Now()
	x.mu.Unlock()

	logger.Infow("ClinVec index loaded",
		"rows", s.index.Len(),
		"codes", len(s.byCode),
		"dimension", s.index.Dim(),
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// Ready 报告索引是否已加载。
func (x *Index) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.snap != nil
}

func (x *Index) current() (*snapshot, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.snap == nil {
		return nil, errors.ErrClinVecNotReady
	}
	return x.snap, nil
}

// Context 为问题中的每个已知编码检索 k 个近邻，
// 每行渲染为 "<code>: <name>"，以换行连接。
// 问题中没有编码时返回空串，编码均未知时返回 NoMatches。
func (x *Index) Context(question string, k int) (string, error) {
	codes := ExtractCodes(question)
	if len(codes) == 0 {
		return "", nil
	}

	s, err := x.current()
	if err != nil {
		return "", err
	}

	var (
		lines   []string
		matched bool
	)
	for _, code := range codes {
		neighbors, ok, err := s.neighbors(code, k)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		matched = true
		for _, n := range neighbors {
			lines = append(lines, n.Code+": "+n.Name)
		}
	}

	if !matched {
		return NoMatches, nil
	}
	return strings.Join(lines, "\n"), nil
}

// Lookup 返回编码的元数据。
func (x *Index) Lookup(code string) (Node, error) {
	s, err := x.current()
	if err != nil {
		return Node{}, err
	}
	row, ok := s.byCode[code]
	if !ok {
		return Node{}, errors.ErrCodeNotFound.WithMessagef("code %s not found", code)
	}
	return s.nodes[row], nil
}

// Neighbors 返回编码的 k 个近邻，通常第一个是编码自身。
func (x *Index) Neighbors(code string, k int) ([]Neighbor, error) {
	s, err := x.current()
	if err != nil {
		return nil, err
	}
	neighbors, ok, err := s.neighbors(code, k)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrCodeNotFound.WithMessagef("code %s not found", code)
	}
	return neighbors, nil
}

// Stats 返回索引统计。
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.snap == nil {
		return Stats{}
	}
	return Stats{
		Loaded:    true,
		Rows:      x.snap.index.Len(),
		Codes:     len(x.snap.byCode),
		Dimension: x.snap.index.Dim(),
		LoadedAt:  x.loadedAt,
	}
}

// Files 返回索引依赖的文件路径。
func (x *Index) Files() []string {
	return []string{x.embeddingsPath, x.nodesPath}
}

// Watch 订阅文件变更，在后台池中重新加载索引。
// 池满时丢弃本次重载，等待下一次变更事件。
func (x *Index) Watch(w *config.Watcher, p *pool.Pool) {
	w.Subscribe("clinvec", func(_ context.Context, changed []string) error {
		return p.Submit(func() {
			if err := x.Load(); err != nil {
				logger.Errorw("ClinVec reload failed, keeping previous index",
					"files", changed,
					"error", err.Error(),
				)
			}
		})
	})
}

// neighbors 检索编码的近邻。没有元数据的行被跳过。
func (s *snapshot) neighbors(code string, k int) ([]Neighbor, bool, error) {
	row, ok := s.byCode[code]
	if !ok {
		return nil, false, nil
	}
	vec, _ := s.index.Vector(row)
	hits, err := s.index.Search(vec, k)
	if err != nil {
		return nil, true, err
	}

	out := make([]Neighbor, 0, len(hits))
	for i, h := range hits {
		node, ok := s.nodes[h.Row]
		if !ok {
			continue
		}
		out = append(out, Neighbor{Node: node, Distance: h.Distance, Rank: i})
	}
	return out, true, nil
}
