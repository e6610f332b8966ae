// Package evaluator 提供问答结果的自动评估。
//
// 两个指标并发计算：
//   - Faithfulness（忠实度）：NLI 分类器判断上下文是否蕴含答案，取最高分标签；
//   - Relevance（相关性）：问题与答案嵌入向量的余弦相似度。
//
// 分数均保留 3 位小数。
package evaluator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kart-io/clinrag/internal/pkg/rag/textutil"
	"github.com/kart-io/clinrag/pkg/llm"
)

// LabelUnknown 评估失败时记录的忠实度标签。
const LabelUnknown = "UNKNOWN"

// DefaultMaxTokens NLI 输入的默认最大词元数。
const DefaultMaxTokens = 512

// scorePlaces 分数保留的小数位数。
const scorePlaces = 3

// Result 评估结果。
type Result struct {
	// FaithfulnessLabel NLI 最高分标签，例如 ENTAILMENT。
	FaithfulnessLabel string `json:"faithfulness"`
	// FaithfulnessScore 最高分标签的置信度。
	FaithfulnessScore float64 `json:"faithfulness_score"`
	// RelevanceScore 问题与答案的余弦相似度。
	RelevanceScore float64 `json:"relevance_score"`
}

// Unknown 返回评估失败时使用的结果。
func Unknown() *Result {
	return &Result{FaithfulnessLabel: LabelUnknown}
}

// Evaluator 计算忠实度与相关性。
type Evaluator struct {
	classifier    llm.ClassifierProvider
	embedProvider llm.EmbeddingProvider
	maxTokens     int
}

// Option 配置 Evaluator 的选项。
type Option func(*Evaluator)

// WithMaxTokens 设置 NLI 输入的最大词元数。
func WithMaxTokens(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// New 创建评估器。
func New(classifier llm.ClassifierProvider, embedProvider llm.EmbeddingProvider, opts ...Option) *Evaluator {
	e := &Evaluator{
		classifier:    classifier,
		embedProvider: embedProvider,
		maxTokens:     DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate 并发计算忠实度与相关性，任一指标失败即返回错误。
func (e *Evaluator) Evaluate(ctx context.Context, contextText, question, answer string) (*Result, error) {
	result := &Result{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		label, score, err := e.Faithfulness(gctx, contextText, answer)
		if err != nil {
			return err
		}
		result.FaithfulnessLabel = label
		result.FaithfulnessScore = score
		return nil
	})
	g.Go(func() error {
		score, err := e.Relevance(gctx, question, answer)
		if err != nil {
			return err
		}
		result.RelevanceScore = score
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// NLIInput 构造 NLI 分类输入 "{context} </s> {answer}" 并截断到 maxTokens。
func NLIInput(contextText, answer string, maxTokens int) string {
	return textutil.TruncateTokens(contextText+" </s> "+answer, maxTokens)
}

// Faithfulness 返回 NLI 最高分标签及其分数。
func (e *Evaluator) Faithfulness(ctx context.Context, contextText, answer string) (string, float64, error) {
	labels, err := e.classifier.Classify(ctx, NLIInput(contextText, answer, e.maxTokens))
	if err != nil {
		return "", 0, fmt.Errorf("nli classification failed: %w", err)
	}
	if len(labels) == 0 {
		return "", 0, fmt.Errorf("nli classifier %s returned no labels", e.classifier.Name())
	}

	llm.SortLabels(labels)
	top := labels[0]
	return top.Label, textutil.Round(top.Score, scorePlaces), nil
}

// Relevance 返回问题与答案嵌入的余弦相似度。
func (e *Evaluator) Relevance(ctx context.Context, question, answer string) (float64, error) {
	vectors, err := e.embedProvider.Embed(ctx, []string{question, answer})
	if err != nil {
		return 0, fmt.Errorf("failed to embed question and answer: %w", err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}
	return textutil.Round(textutil.CosineSimilarity(vectors[0], vectors[1]), scorePlaces), nil
}
