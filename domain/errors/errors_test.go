package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Operation: "rent", Duration: 5 * time.Second}

	assert.Equal(t, "rent timeout after 5s", err.Error())
	assert.True(t, err.Timeout())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	var timeoutErr *TimeoutError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &timeoutErr))
	assert.Equal(t, 5*time.Second, timeoutErr.Duration)

	detail := err.ToErrorDetail()
	assert.Equal(t, "timeout", detail.Type)
	assert.True(t, detail.IsTimeout)
}

func TestTimeoutError_NoDuration(t *testing.T) {
	err := &TimeoutError{Operation: "execute"}
	assert.Equal(t, "execute timeout", err.Error())
}

func TestCanceledError(t *testing.T) {
	err := &CanceledError{Operation: "rent"}
	assert.Equal(t, "rent canceled", err.Error())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFromContext(t *testing.T) {
	assert.NoError(t, FromContext("rent", nil, 0))

	var timeoutErr *TimeoutError
	require.True(t, errors.As(FromContext("rent", context.DeadlineExceeded, time.Second), &timeoutErr))
	assert.Equal(t, "rent", timeoutErr.Operation)

	var canceledErr *CanceledError
	require.True(t, errors.As(FromContext("rent", fmt.Errorf("x: %w", context.Canceled), 0), &canceledErr))

	other := errors.New("boom")
	assert.Same(t, other, FromContext("rent", other, 0))
}

func TestConversionError(t *testing.T) {
	base := errors.New("overflow")
	err := &ConversionError{From: "int", To: "int8", Err: base}

	assert.Equal(t, "cannot convert int to int8: overflow", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "cannot convert list to string", (&ConversionError{From: "list", To: "string"}).Error())
	assert.Equal(t, "conversion", err.ToErrorDetail().Type)
}

func TestScriptError(t *testing.T) {
	err := &ScriptError{Kind: "syntax", Message: "got end of file, want primary expression", Backtrace: "<exec>:1:11"}
	assert.Equal(t, "syntax error: got end of file, want primary expression", err.Error())

	detail := err.ToErrorDetail()
	assert.Equal(t, "syntax", detail.Type)
	assert.Equal(t, "<exec>:1:11", detail.Stack)
}

func TestInitializationError(t *testing.T) {
	base := errors.New("runtime assets missing")
	err := &InitializationError{InterpreterID: "abc", Err: base}
	assert.Equal(t, "interpreter abc failed to initialize: runtime assets missing", err.Error())
	assert.True(t, errors.Is(err, base))

	pe := &PoolInitializationError{Requested: 3, Err: err}
	assert.Contains(t, pe.Error(), "0 of 3 interpreters created")
	assert.True(t, errors.Is(pe, base))
}

func TestTransactionErrors(t *testing.T) {
	assert.Equal(t, `transaction "walls" is already active`,
		(&TransactionAlreadyActiveError{Active: "walls"}).Error())
	assert.Equal(t, "parameter.set requires an active transaction",
		(&NoActiveTransactionError{Operation: "parameter.set"}).Error())

	base := errors.New("disk full")
	err := &TransactionError{Label: "walls", Err: base}
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, "commit_failed", err.ToErrorDetail().Code)
}

func TestPoolDisposedError(t *testing.T) {
	assert.Equal(t, "interpreter pool is disposed", (&PoolDisposedError{}).Error())
	assert.Equal(t, "rent: interpreter pool is disposed", (&PoolDisposedError{Operation: "rent"}).Error())
}

func TestHostFunctionError(t *testing.T) {
	err := &HostFunctionError{Function: "element.get", Code: "not_found"}
	assert.Equal(t, "host function element.get: not_found", err.Error())
	assert.True(t, err.ToErrorDetail().IsNotFound)
}

func TestToErrorDetail(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToErrorDetail(nil))
	})

	t.Run("detailed error", func(t *testing.T) {
		detail := ToErrorDetail(fmt.Errorf("ctx: %w", &ImportError{Module: "walls"}))
		require.NotNil(t, detail)
		assert.Equal(t, "import:walls", detail.Code)
	})

	t.Run("error detail passthrough", func(t *testing.T) {
		orig := entities.NewErrorDetail("runtime", "boom")
		assert.Same(t, orig, ToErrorDetail(orig))
	})

	t.Run("generic", func(t *testing.T) {
		detail := ToErrorDetail(errors.New("boom"))
		assert.Equal(t, "internal", detail.Type)
		assert.Equal(t, "boom", detail.Message)
	})
}
