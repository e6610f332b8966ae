package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/clinrag/pkg/utils/errors"
	"github.com/kart-io/clinrag/pkg/utils/response"
)

// BodyLimit 返回请求体大小限制中间件。
// Content-Length 超限的请求直接拒绝，其余请求的读取由 http.MaxBytesReader 限制。
func BodyLimit(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = 4 << 20
	}
	return func(c *gin.Context) {
		req := c.Request
		if req.ContentLength > maxSize {
			logger.Warnw("request body too large",
				"path", req.URL.Path,
				"content_length", req.ContentLength,
				"max_size", maxSize,
			)
			response.Fail(c, errors.ErrRequestTooLarge)
			c.Abort()
			return
		}
		req.Body = http.MaxBytesReader(c.Writer, req.Body, maxSize)
		c.Next()
	}
}
