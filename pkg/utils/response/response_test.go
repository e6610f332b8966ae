package response

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/clinrag/pkg/utils/errors"
)

func TestSuccess(t *testing.T) {
	r := Success(map[string]int{"chunks": 4})
	assert.True(t, r.IsSuccess())
	assert.Equal(t, http.StatusOK, r.HTTPStatus())
	assert.NotZero(t, r.Timestamp)

	l := List([]string{"a", "b"}, 2)
	assert.Equal(t, 2, l.Data.(*ListData).Total)
}

func TestErr(t *testing.T) {
	r := Err(errors.ErrNoDocument).WithRequestID("req-1")
	assert.False(t, r.IsSuccess())
	assert.Equal(t, http.StatusConflict, r.HTTPStatus())
	assert.Equal(t, "req-1", r.RequestID)

	zh := ErrWithLang(errors.ErrEmptyQuestion, "zh")
	assert.Equal(t, "问题不能为空", zh.Message)

	assert.True(t, Err(nil).IsSuccess())
}

func TestFromError(t *testing.T) {
	r := FromError(fmt.Errorf("wrapped: %w", errors.ErrCodeNotFound))
	assert.Equal(t, errors.ErrCodeNotFound.Code, r.Code)
	assert.Equal(t, http.StatusNotFound, r.HTTPStatus())

	r = FromError(fmt.Errorf("plain"))
	assert.Equal(t, errors.ErrInternal.Code, r.Code)
}

func TestHTTPStatusFallback(t *testing.T) {
	r := &Response{Code: errors.MakeCode(55, errors.CategoryTimeout, 1)}
	assert.Equal(t, http.StatusGatewayTimeout, r.HTTPStatus())

	r = &Response{Code: errors.MakeCode(55, errors.CategoryRequest, 9)}
	assert.Equal(t, http.StatusBadRequest, r.HTTPStatus())
}
