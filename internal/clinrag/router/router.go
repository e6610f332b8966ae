// Package router provides clinical RAG service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/clinrag/internal/clinrag/handler"
	"github.com/kart-io/clinrag/pkg/infra/middleware"
)

// Register registers the clinical RAG routes on engine. metricsHandler is
// mounted at /metrics when non-nil.
func Register(engine *gin.Engine, h *handler.ClinRAGHandler, maxUploadSize int64, metricsHandler http.Handler) {
	logger.Info("Registering ClinRAG routes...")

	v1 := engine.Group("/v1")
	{
		rag := v1.Group("/clinrag")
		{
			// Document endpoints
			rag.POST("/documents", middleware.BodyLimit(maxUploadSize), h.UploadDocument)

			// Question answering
			rag.POST("/ask", h.Ask)
			rag.GET("/history", h.History)
			rag.DELETE("/session", h.ResetSession)

			// Turn metrics
			rag.GET("/metrics/recent", h.RecentMetrics)
			rag.GET("/metrics/export", h.DownloadMetrics)
			rag.POST("/metrics/export", h.ExportMetrics)

			// Clinical codes
			rag.GET("/codes/:code", h.Code)

			rag.GET("/stats", h.Stats)
		}
	}

	if metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(metricsHandler))
	}

	logger.Info("HTTP routes registered")
}
