package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type codeQuery struct {
	K int `form:"k" binding:"omitempty,min=1,max=100"`
}

func TestValidateStruct(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateStruct(&askRequest{Question: "q"}))
	assert.NoError(t, v.ValidateStruct(&codeQuery{}))
	assert.NoError(t, v.ValidateStruct(nil))
	assert.NoError(t, v.ValidateStruct([]askRequest{{Question: "a"}, {Question: "b"}}))

	require.Error(t, v.ValidateStruct(&askRequest{}))
	require.Error(t, v.ValidateStruct([]*askRequest{{Question: "a"}, {}}))
	require.Error(t, v.ValidateStruct(codeQuery{K: 500}))
}

func TestTranslate(t *testing.T) {
	v := New()
	err := v.ValidateStruct(&askRequest{})
	require.Error(t, err)

	msg, ok := v.Translate(err, LangEN)
	require.True(t, ok)
	assert.Equal(t, "question is a required field", msg)

	msg, ok = v.Translate(err, LangZH)
	require.True(t, ok)
	assert.Contains(t, msg, "question")
	assert.NotEqual(t, "question is a required field", msg)

	msg, ok = v.Translate(v.ValidateStruct(&codeQuery{K: 500}), "fr")
	require.True(t, ok)
	assert.Equal(t, "k must be 100 or less", msg)

	_, ok = v.Translate(errors.New("EOF"), LangEN)
	assert.False(t, ok)
}

func TestGlobal(t *testing.T) {
	assert.Same(t, Global(), Global())
}
