package biz

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/clinrag/internal/clinrag/clinvec"
	"github.com/kart-io/clinrag/internal/clinrag/metrics"
	"github.com/kart-io/clinrag/internal/clinrag/store"
	"github.com/kart-io/clinrag/internal/model"
	"github.com/kart-io/clinrag/internal/pkg/rag/docutil"
	"github.com/kart-io/clinrag/internal/pkg/rag/evaluator"
	"github.com/kart-io/clinrag/internal/pkg/rag/textutil"
	"github.com/kart-io/clinrag/pkg/id"
	ctxlog "github.com/kart-io/clinrag/pkg/infra/logger"
	"github.com/kart-io/clinrag/pkg/infra/tracing"
	"github.com/kart-io/clinrag/pkg/utils/errors"
)

// AnswerEvaluator 评估答案质量。
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, contextText, question, answer string) (*evaluator.Result, error)
}

// ServiceConfig 服务配置。
type ServiceConfig struct {
	// Collection 文档块集合名称。
	Collection string
	// CodeTopK 每个临床编码返回的近邻数。
	CodeTopK int
	// ExportPath 指标导出文件路径。
	ExportPath string
	// Providers 各角色的供应商名称，用于统计展示。
	Providers map[string]string
}

// Service 组合索引、检索、生成与评估，提供完整的问答流程。
type Service struct {
	indexer       *Indexer
	retriever     *Retriever
	codeRetriever CodeRetriever
	generator     *Generator
	evaluator     AnswerEvaluator
	cache         *AnswerCache
	store         store.VectorStore
	session       *Session
	metrics       *metrics.ClinRAGMetrics
	config        *ServiceConfig

	mu       sync.RWMutex
	document *model.Document
}

// ServiceDeps 服务依赖。CodeRetriever 与 Cache 可为空。
type ServiceDeps struct {
	Indexer       *Indexer
	Retriever     *Retriever
	CodeRetriever CodeRetriever
	Generator     *Generator
	Evaluator     AnswerEvaluator
	Cache         *AnswerCache
	Store         store.VectorStore
	Metrics       *metrics.ClinRAGMetrics
}

// NewService 创建问答服务。
func NewService(deps ServiceDeps, config *ServiceConfig) *Service {
	if config.CodeTopK <= 0 {
		config.CodeTopK = clinvec.DefaultTopK
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Service{
		indexer:       deps.Indexer,
		retriever:     deps.Retriever,
		codeRetriever: deps.CodeRetriever,
		generator:     deps.Generator,
		evaluator:     deps.Evaluator,
		cache:         deps.Cache,
		store:         deps.Store,
		session:       NewSession(),
		metrics:       deps.Metrics,
		config:        config,
	}
}

// Session 返回会话。
func (s *Service) Session() *Session {
	return s.session
}

// Document 返回当前已索引的文档，未索引时返回 nil。
func (s *Service) Document() *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.document == nil {
		return nil
	}
	doc := *s.document
	return &doc
}

// IndexUpload 提取上传文件的文本并建立索引。
func (s *Service) IndexUpload(ctx context.Context, name string, r io.Reader) (*model.Document, error) {
	if _, ok := docutil.DetectKind(name); !ok {
		return nil, errors.ErrUnsupportedFile.WithMessagef("unsupported document type: %s", name)
	}
	text, err := docutil.ExtractText(name, r)
	if err != nil {
		s.metrics.RecordIndexing(0, err)
		return nil, errors.ErrUnsupportedFile.WithCause(err)
	}
	return s.IndexText(ctx, name, text)
}

// IndexText 为文本建立索引，替换之前的文档。
func (s *Service) IndexText(ctx context.Context, name, text string) (*model.Document, error) {
	start := time.Now()
	doc, err := s.indexer.IndexDocument(ctx, name, text)
	s.metrics.RecordStage(metrics.StageIndexing, time.Since(start), err)
	if err != nil {
		s.metrics.RecordIndexing(0, err)
		// ErrIndexFailed 只在旧集合删除之后产生，此时旧文档已不可检索。
		if stderrors.Is(err, errors.ErrIndexFailed) {
			s.mu.Lock()
			prev := s.document
			s.document = nil
			s.mu.Unlock()
			if prev != nil {
				ctxlog.Warn(ctx, "Index replacement failed, previous document cleared", err,
					ctxlog.FieldDocument, prev.ID)
			}
		}
		return nil, err
	}
	s.metrics.RecordIndexing(doc.ChunkNum, nil)

	s.mu.Lock()
	s.document = doc
	s.mu.Unlock()
	return doc, nil
}

// Ask 回答一个问题：检索文档块与临床编码上下文，融合后生成答案并评估。
// 延迟只统计检索、融合与生成，不含评估。
func (s *Service) Ask(ctx context.Context, question string) (result *model.AskResult, err error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.ErrEmptyQuestion
	}
	doc := s.Document()
	if doc == nil {
		return nil, errors.ErrNoDocument
	}
	ctx = ctxlog.WithFields(ctx, ctxlog.FieldDocument, doc.ID)

	ctx, span := tracing.StartSpan(ctx, "clinrag.ask",
		attribute.String(tracing.AttrDocumentID, doc.ID))
	defer span.End()
	defer func() {
		if err != nil {
			tracing.RecordError(span, err)
			s.metrics.RecordAsk(false, err)
		}
	}()

	start := time.Now()
	if cached, cerr := s.cache.Get(ctx, question, doc.ID); cerr == nil && cached != nil {
		span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, true))
		cached.TurnID = id.New()
		cached.CacheHit = true
		cached.LatencySec = textutil.Round(time.Since(start).Seconds(), 2)
		s.record(cached)
		s.metrics.RecordAsk(true, nil)
		return cached, nil
	}

	stageStart := time.Now()
	retrieval, err := s.retriever.TopChunks(ctx, question)
	s.metrics.RecordStage(metrics.StageRetrieval, time.Since(stageStart), err)
	if err != nil {
		return nil, err
	}

	codeContext := s.codeContext(ctx, question)
	combined := FuseContext(retrieval.Context, codeContext)

	stageStart = time.Now()
	answer, err := s.generator.Answer(ctx, question, combined)
	s.metrics.RecordStage(metrics.StageGeneration, time.Since(stageStart), err)
	if err != nil {
		return nil, err
	}
	latency := textutil.Round(time.Since(start).Seconds(), 2)

	eval := s.evaluate(ctx, combined, question, answer)

	result = &model.AskResult{
		TurnID:       id.New(),
		Question:     question,
		Answer:       answer,
		Context:      combined,
		LatencySec:   latency,
		AnswerLength: textutil.WordCount(answer),
		Evaluation: model.Evaluation{
			Faithfulness:      eval.FaithfulnessLabel,
			FaithfulnessScore: eval.FaithfulnessScore,
			RelevanceScore:    eval.RelevanceScore,
		},
		Sources: sources(retrieval.Results),
	}

	s.record(result)
	s.metrics.RecordAsk(false, nil)
	if eval.FaithfulnessLabel != evaluator.LabelUnknown {
		_ = s.cache.Set(ctx, doc.ID, result)
	}

	span.SetAttributes(
		attribute.String(tracing.AttrFaithfulness, eval.FaithfulnessLabel),
		attribute.Float64(tracing.AttrRelevance, eval.RelevanceScore),
	)
	ctxlog.From(ctx).Infow("Question answered",
		ctxlog.FieldTurnID, result.TurnID,
		"latency_sec", latency,
		"answer_length", result.AnswerLength,
		"faithfulness", eval.FaithfulnessLabel,
		"relevance", eval.RelevanceScore,
	)
	return result, nil
}

// codeContext 检索临床编码上下文，失败时降级为空上下文。
func (s *Service) codeContext(ctx context.Context, question string) string {
	if s.codeRetriever == nil {
		return ""
	}
	start := time.Now()
	out, err := s.codeRetriever.Context(question, s.config.CodeTopK)
	s.metrics.RecordStage(metrics.StageClinVec, time.Since(start), err)
	if err != nil {
		ctxlog.Warn(ctx, "ClinVec context unavailable, continuing without it", err)
		return ""
	}
	return out
}

// evaluate 评估答案，失败时记录 UNKNOWN 与零分。
func (s *Service) evaluate(ctx context.Context, contextText, question, answer string) *evaluator.Result {
	ctx, span := tracing.StartSpan(ctx, "clinrag.evaluate")
	defer span.End()

	start := time.Now()
	res, err := s.evaluator.Evaluate(ctx, contextText, question, answer)
	s.metrics.RecordStage(metrics.StageEvaluation, time.Since(start), err)
	if err != nil {
		tracing.RecordError(span, err)
		ctxlog.Warn(ctx, "Answer evaluation failed, recording UNKNOWN", errors.ErrEvaluationFailed.WithCause(err))
		res = evaluator.Unknown()
	}
	s.metrics.RecordEvaluation(res.FaithfulnessLabel, res.RelevanceScore)
	return res
}

func (s *Service) record(r *model.AskResult) {
	now := time.Now()
	s.session.Append(
		model.ChatMessage{Role: model.RoleUser, Content: r.Question, CreatedAt: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: r.Answer, CreatedAt: now},
		model.TurnMetrics{
			ID:                r.TurnID,
			Question:          r.Question,
			LatencySec:        r.LatencySec,
			AnswerLength:      r.AnswerLength,
			Faithfulness:      r.Evaluation.Faithfulness,
			FaithfulnessScore: r.Evaluation.FaithfulnessScore,
			RelevanceScore:    r.Evaluation.RelevanceScore,
			CacheHit:          r.CacheHit,
			CreatedAt:         now,
		},
	)
}

func sources(results []*store.SearchResult) []model.ChunkSource {
	out := make([]model.ChunkSource, len(results))
	for i, r := range results {
		out[i] = model.ChunkSource{
			ID:           r.ID,
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
			Section:      r.Section,
			Content:      r.Content,
			Score:        r.Score,
			Distance:     r.Distance,
		}
	}
	return out
}

// ExportFile 将指标写入配置的文件，返回路径与行数。
func (s *Service) ExportFile() (string, int, error) {
	n, err := s.session.ExportFile(s.config.ExportPath)
	if err != nil {
		return "", 0, errors.ErrExportFailed.WithCause(err)
	}
	logger.Infow("Metrics exported", "path", s.config.ExportPath, "rows", n)
	return s.config.ExportPath, n, nil
}

// Stats 返回服务统计。
func (s *Service) Stats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"collection": s.config.Collection,
		"providers":  s.config.Providers,
		"turns":      s.session.Len(),
		"cache":      s.cache.Stats(),
		"metrics":    s.metrics.Stats(),
	}

	if doc := s.Document(); doc != nil {
		stats["document"] = doc
		if n, err := s.store.GetStats(ctx, s.config.Collection); err == nil {
			stats["chunk_count"] = n
		} else {
			logger.Warnw("failed to read chunk count", "error", err.Error())
		}
	} else {
		stats["chunk_count"] = 0
	}

	if x, ok := s.codeRetriever.(*clinvec.Index); ok && x != nil {
		stats["clinvec"] = x.Stats()
	}
	return stats
}
