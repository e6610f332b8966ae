// Package handler provides HTTP handlers for the clinical RAG service.
package handler

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/clinrag/internal/clinrag/biz"
	"github.com/kart-io/clinrag/internal/clinrag/clinvec"
	"github.com/kart-io/clinrag/internal/model"
	"github.com/kart-io/clinrag/pkg/utils/errors"
	"github.com/kart-io/clinrag/pkg/utils/response"
)

// ExportFileName is the attachment name of the CSV download.
const ExportFileName = "chatbot_metrics.csv"

// Config holds handler settings.
type Config struct {
	// AskTimeout bounds a single question, including generation and scoring.
	AskTimeout time.Duration
	// RecentMetrics is the default n for /metrics/recent.
	RecentMetrics int
	// CodeTopK is the default neighbour count for /codes/:code.
	CodeTopK int
}

// ClinRAGHandler handles clinical RAG HTTP requests.
type ClinRAGHandler struct {
	service *biz.Service
	codes   *clinvec.Index
	config  Config
}

// NewClinRAGHandler creates a new ClinRAGHandler. codes may be nil when the
// ClinVec index is disabled.
func NewClinRAGHandler(service *biz.Service, codes *clinvec.Index, config Config) *ClinRAGHandler {
	if config.AskTimeout <= 0 {
		config.AskTimeout = 60 * time.Second
	}
	if config.RecentMetrics <= 0 {
		config.RecentMetrics = 5
	}
	if config.CodeTopK <= 0 {
		config.CodeTopK = clinvec.DefaultTopK
	}
	return &ClinRAGHandler{service: service, codes: codes, config: config}
}

// UploadDocument indexes a multipart "file" upload, replacing the current document.
func (h *ClinRAGHandler) UploadDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			response.Fail(c, errors.ErrRequestTooLarge)
			return
		}
		response.Fail(c, errors.ErrInvalidParam.WithMessage("multipart field 'file' is required"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.FailWithError(c, errors.ErrBadRequest.WithCause(err))
		return
	}
	defer f.Close()

	doc, err := h.service.IndexUpload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, doc)
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask answers a question against the indexed document.
func (h *ClinRAGHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailWithBind(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.AskTimeout)
	defer cancel()

	result, err := h.service.Ask(ctx, req.Question)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			response.Fail(c, errors.ErrAskTimeout.WithMessagef(
				"question answering timed out after %s", h.config.AskTimeout).WithCause(err))
			return
		}
		response.FailWithError(c, err)
		return
	}
	response.OK(c, result)
}

// History returns the chat history in order.
func (h *ClinRAGHandler) History(c *gin.Context) {
	history := h.service.Session().History()
	response.OKList(c, history, len(history))
}

// RecentQuery is the query of GET /metrics/recent.
type RecentQuery struct {
	N int `form:"n" binding:"omitempty,min=1,max=1000"`
}

// RecentMetric is a turn's metrics plus the rendered summary line.
type RecentMetric struct {
	model.TurnMetrics
	Summary string `json:"summary"`
}

// RecentMetrics returns the last n turn metrics, oldest first.
func (h *ClinRAGHandler) RecentMetrics(c *gin.Context) {
	var q RecentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.FailWithBind(c, err)
		return
	}
	if q.N == 0 {
		q.N = h.config.RecentMetrics
	}

	recent := h.service.Session().Recent(q.N)
	out := make([]RecentMetric, len(recent))
	for i, m := range recent {
		out[i] = RecentMetric{TurnMetrics: m, Summary: m.Summary()}
	}
	response.OKList(c, out, len(out))
}

// DownloadMetrics streams all turn metrics as CSV.
func (h *ClinRAGHandler) DownloadMetrics(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	c.Status(http.StatusOK)
	if err := h.service.Session().ExportCSV(c.Writer); err != nil {
		logger.Errorw("failed to stream metrics csv", "error", err.Error())
	}
}

// ExportResult describes a metrics file written on the server.
type ExportResult struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// ExportMetrics writes all turn metrics to the configured CSV file.
func (h *ClinRAGHandler) ExportMetrics(c *gin.Context) {
	path, n, err := h.service.ExportFile()
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, ExportResult{Path: path, Rows: n})
}

// ResetSession clears chat history and metrics.
func (h *ClinRAGHandler) ResetSession(c *gin.Context) {
	h.service.Session().Reset()
	response.OK(c, nil)
}

// CodeQuery is the query of GET /codes/:code.
type CodeQuery struct {
	K int `form:"k" binding:"omitempty,min=1,max=100"`
}

// CodeResult is a clinical code with its nearest neighbours.
type CodeResult struct {
	Node      clinvec.Node       `json:"node"`
	Neighbors []clinvec.Neighbor `json:"neighbors"`
}

// Code returns metadata and nearest neighbours for a clinical code.
func (h *ClinRAGHandler) Code(c *gin.Context) {
	if h.codes == nil {
		response.Fail(c, errors.ErrClinVecNotReady)
		return
	}

	var q CodeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.FailWithBind(c, err)
		return
	}
	if q.K == 0 {
		q.K = h.config.CodeTopK
	}

	code := c.Param("code")
	node, err := h.codes.Lookup(code)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	neighbors, err := h.codes.Neighbors(code, q.K)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.OK(c, CodeResult{Node: node, Neighbors: neighbors})
}

// Stats returns service statistics.
func (h *ClinRAGHandler) Stats(c *gin.Context) {
	response.OK(c, h.service.Stats(c.Request.Context()))
}
