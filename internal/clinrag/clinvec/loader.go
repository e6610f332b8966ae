package clinvec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kart-io/clinrag/internal/clinrag/store"
)

// Node 是临床知识图谱节点的元数据。
type Node struct {
	// Index 节点行号，对应向量矩阵的行。
	Index int `json:"node_index"`
	// Code 节点编码，例如 PheCode:250.2。
	Code string `json:"code"`
	// Name 节点名称。
	Name string `json:"name"`
	// Type 节点类型（可选列）。
	Type string `json:"type,omitempty"`
	// Source 节点来源（可选列）。
	Source string `json:"source,omitempty"`
}

// snapshot 是一次加载得到的不可变索引。
type snapshot struct {
	index  *store.Flat
	nodes  map[int]Node
	byCode map[string]int
}

// 节点文件中可接受的列名。
var (
	indexColumns  = []string{"node_index"}
	codeColumns   = []string{"code", "node_id"}
	nameColumns   = []string{"name", "node_name"}
	typeColumns   = []string{"node_type", "type"}
	sourceColumns = []string{"node_source", "source"}
)

// load 读取向量矩阵与节点元数据并按 node_index 关联。
func load(embeddingsPath, nodesPath string) (*snapshot, error) {
	ef, err := os.Open(embeddingsPath)
	if err != nil {
		return nil, fmt.Errorf("open embeddings: %w", err)
	}
	defer ef.Close()

	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("open nodes: %w", err)
	}
	defer nf.Close()

	return parse(ef, nf)
}

func parse(embeddings, nodes io.Reader) (*snapshot, error) {
	index, err := parseMatrix(embeddings)
	if err != nil {
		return nil, err
	}
	meta, err := parseNodes(nodes)
	if err != nil {
		return nil, err
	}

	s := &snapshot{
		index:  index,
		nodes:  make(map[int]Node, len(meta)),
		byCode: make(map[string]int, len(meta)),
	}
	for _, n := range meta {
		if n.Index < 0 || n.Index >= index.Len() {
			continue
		}
		if _, dup := s.nodes[n.Index]; dup {
			continue
		}
		s.nodes[n.Index] = n
		if _, seen := s.byCode[n.Code]; !seen && n.Code != "" {
			s.byCode[n.Code] = n.Index
		}
	}
	return s, nil
}

// parseMatrix 解析带表头的逗号分隔向量矩阵，行号即节点行号。
func parseMatrix(r io.Reader) (*store.Flat, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("embeddings: empty file")
		}
		return nil, fmt.Errorf("embeddings: read header: %w", err)
	}
	dim := len(header)

	index := store.NewFlat(dim)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("embeddings: line %d: %w", line, err)
		}
		vec := make([]float32, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return nil, fmt.Errorf("embeddings: line %d column %d: %w", line, i+1, err)
			}
			vec[i] = float32(v)
		}
		if _, err := index.Add(vec); err != nil {
			return nil, fmt.Errorf("embeddings: line %d: %w", line, err)
		}
	}

	if index.Len() == 0 {
		return nil, fmt.Errorf("embeddings: no rows")
	}
	return index, nil
}

// parseNodes 解析带表头的制表符分隔节点文件。
func parseNodes(r io.Reader) ([]Node, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("nodes: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idxCol := column(cols, indexColumns)
	codeCol := column(cols, codeColumns)
	nameCol := column(cols, nameColumns)
	if idxCol < 0 || codeCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("nodes: header must include node_index, code and name columns")
	}
	typeCol := column(cols, typeColumns)
	sourceCol := column(cols, sourceColumns)

	var out []Node
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("nodes: line %d: %w", line, err)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(field(rec, idxCol)))
		if err != nil {
			return nil, fmt.Errorf("nodes: line %d: invalid node_index: %w", line, err)
		}
		out = append(out, Node{
			Index:  idx,
			Code:   strings.TrimSpace(field(rec, codeCol)),
			Name:   strings.TrimSpace(field(rec, nameCol)),
			Type:   strings.TrimSpace(field(rec, typeCol)),
			Source: strings.TrimSpace(field(rec, sourceCol)),
		})
	}
	return out, nil
}

func column(cols map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
