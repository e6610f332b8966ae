package biz

import (
	"context"
	"strings"

	ctxlog "github.com/kart-io/clinrag/pkg/infra/logger"
	"github.com/kart-io/clinrag/pkg/infra/tracing"
	"github.com/kart-io/clinrag/pkg/llm"
	"github.com/kart-io/clinrag/pkg/utils/errors"
)

// promptTemplate 问答提示词。
const promptTemplate = "Answer the question based on the context.\nContext: {context}\nQuestion: {question}"

// BuildPrompt 构造生成提示词。
func BuildPrompt(question, contextText string) string {
	return strings.NewReplacer("{context}", contextText, "{question}", question).Replace(promptTemplate)
}

// Generator 负责答案生成。
type Generator struct {
	chatProvider llm.ChatProvider
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.ChatProvider) *Generator {
	return &Generator{chatProvider: chatProvider}
}

// Answer 根据融合上下文生成答案并去除首尾空白。
func (g *Generator) Answer(ctx context.Context, question, contextText string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "clinrag.generate")
	defer span.End()

	out, err := g.chatProvider.Generate(ctx, BuildPrompt(question, contextText), "")
	if err != nil {
		tracing.RecordError(span, err)
		ctxlog.Error(ctx, "Answer generation failed", err, "provider", g.chatProvider.Name())
		return "", errors.ErrGenerationFailed.WithCause(err)
	}
	return strings.TrimSpace(out), nil
}
