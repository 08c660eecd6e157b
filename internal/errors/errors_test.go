package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"painel/domain/core"
)

func TestStructuralCarriesContext(t *testing.T) {
	err := Structural(StageFiltering, "data", core.ErrNoDateColumn)

	assert.Equal(t, CodeStructural, GetCode(err))
	assert.Contains(t, err.Error(), "filtering")
	assert.Contains(t, err.Error(), `"data"`)
	assert.True(t, stderrors.Is(err, core.ErrNoDateColumn))
}

func TestWrapKeepsCode(t *testing.T) {
	inner := InputFormat("empty upload", nil)
	wrapped := Wrap(inner, "process failed")
	assert.Equal(t, CodeInputFormat, GetCode(wrapped))

	plain := Wrap(stderrors.New("boom"), "context")
	assert.Equal(t, CodeInternalError, GetCode(plain))

	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("x")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeNotFound, Structural(StageInference, "valor", core.ErrColumnNotFound))
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.True(t, IsAppError(err))
}
