package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestMakeAndParseCode(t *testing.T) {
	code := MakeCode(ServiceClinRAG, CategoryResource, 7)
	assert.Equal(t, 2104007, code)

	s, c, q := ParseCode(code)
	assert.Equal(t, ServiceClinRAG, s)
	assert.Equal(t, CategoryResource, c)
	assert.Equal(t, 7, q)

	assert.True(t, IsClientError(code))
	assert.False(t, IsServerError(code))
	assert.True(t, IsServerError(ErrIndexFailed.Code))
}

func TestErrnoWrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrEmbeddingFailed.WithCause(cause)

	assert.True(t, stderrors.Is(err, ErrEmbeddingFailed))
	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, ErrEmbeddingFailed.Unwrap(), "original must stay untouched")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())
	assert.Equal(t, codes.Unavailable, err.GRPCStatus())
}

func TestWithMessage(t *testing.T) {
	err := ErrInvalidParam.WithMessagef("k must be positive, got %d", -1)
	assert.Equal(t, "k must be positive, got -1", err.Message("en"))
	assert.Equal(t, "参数无效", err.Message("zh"))
	assert.Equal(t, "Invalid parameter", ErrInvalidParam.MessageEN)

	both := ErrInvalidParam.WithMessages("a", "乙")
	assert.Equal(t, "乙", both.Message("zh-CN"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("ask: %w", ErrNoDocument)
	assert.Equal(t, ErrNoDocument.Code, FromError(wrapped).Code)
	assert.True(t, IsCode(wrapped, ErrNoDocument.Code))
	assert.Equal(t, ErrNoDocument.Code, GetCode(wrapped))

	plain := fmt.Errorf("boom")
	e := FromError(plain)
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.Equal(t, -1, GetCode(plain))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrNoDocument.Code, 409, codes.FailedPrecondition, "dup", "重复"))
	})
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrAskTimeout.Code)
	require.True(t, ok)
	assert.Equal(t, http.StatusRequestTimeout, e.HTTPStatus())

	_, ok = Lookup(9999999)
	assert.False(t, ok)

	name, ok := GetServiceName(ServiceClinRAG)
	require.True(t, ok)
	assert.Equal(t, "clinrag", name)
}

func TestRegisterServiceConflict(t *testing.T) {
	RegisterService(97, "svc-a")
	RegisterService(97, "svc-a")
	assert.Panics(t, func() { RegisterService(97, "svc-b") })
}

func TestFormat(t *testing.T) {
	err := ErrExportFailed.WithCause(fmt.Errorf("disk full"))
	s := fmt.Sprintf("%+v", err)
	assert.Contains(t, s, "HTTP 500")
	assert.Contains(t, s, "caused by: disk full")
	assert.Equal(t, err.Error(), fmt.Sprintf("%s", err))
}
