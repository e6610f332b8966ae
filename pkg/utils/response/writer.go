package response

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/clinrag/pkg/infra/middleware/common"
	"github.com/kart-io/clinrag/pkg/utils/errors"
	"github.com/kart-io/clinrag/pkg/utils/validator"
)

// Send writes r as JSON with its HTTP status, stamping the request ID.
func Send(c *gin.Context, r *Response) {
	if rid := common.GetRequestID(c.Request.Context()); rid != "" {
		r.RequestID = rid
	}
	c.JSON(r.HTTPStatus(), r)
}

// OK sends a successful response.
func OK(c *gin.Context, data any) {
	Send(c, Success(data))
}

// OKList sends a successful list response.
func OKList(c *gin.Context, list any, total int) {
	Send(c, List(list, total))
}

// Fail sends an error response using Errno.
func Fail(c *gin.Context, e *errors.Errno) {
	Send(c, ErrWithLang(e, Lang(c)))
}

// FailWithError converts a standard error and sends it.
// Errors that are not an Errno are reported as ErrInternal.
func FailWithError(c *gin.Context, err error) {
	Fail(c, errors.FromError(err))
}

// FailWithBind reports a request binding or validation error.
// Validation failures describe the first offending field in both languages.
func FailWithBind(c *gin.Context, err error) {
	v := validator.Global()
	if en, ok := v.Translate(err, validator.LangEN); ok {
		zh, _ := v.Translate(err, validator.LangZH)
		Fail(c, errors.ErrInvalidParam.WithMessages(en, zh))
		return
	}
	Fail(c, errors.ErrInvalidParam.WithMessage("invalid request body: "+err.Error()))
}

// Lang returns the language preference from the lang query parameter
// or the Accept-Language header. Defaults to English.
func Lang(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	if accept := c.GetHeader("Accept-Language"); accept != "" {
		first := strings.TrimSpace(strings.Split(strings.Split(accept, ",")[0], ";")[0])
		if strings.HasPrefix(first, "zh") {
			return "zh"
		}
	}
	return "en"
}
