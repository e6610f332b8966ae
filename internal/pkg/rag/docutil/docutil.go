// Package docutil 提供文档文本提取与分块工具函数。
package docutil

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// 默认分块参数。
const (
	DefaultChunkSize     = 500
	DefaultChunkOverlap  = 50
	DefaultMinChunkRunes = 20
)

// Kind 文档类型。
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
)

// DetectKind 根据文件扩展名判断文档类型。
func DetectKind(name string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF, true
	case ".txt":
		return KindText, true
	case ".md", ".markdown":
		return KindMarkdown, true
	default:
		return "", false
	}
}

// ExtractPDF 提取 PDF 每个非空页面的纯文本，以空行连接。
// 无法解析的页面被跳过。
func ExtractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// ExtractText 根据文件名读取文档全文。PDF 经解析提取，纯文本原样返回。
func ExtractText(name string, r io.Reader) (string, error) {
	kind, ok := DetectKind(name)
	if !ok {
		return "", fmt.Errorf("unsupported document type %q", filepath.Ext(name))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	if kind == KindPDF {
		return ExtractPDF(bytes.NewReader(data), int64(len(data)))
	}
	return string(data), nil
}

// Chunk 以 Unicode 字符为单位按滑动窗口切分文本。
// 非空白字符少于 minRunes 的块被丢弃。
func Chunk(text string, size, overlap, minRunes int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if countNonSpace(chunk) >= minRunes {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
