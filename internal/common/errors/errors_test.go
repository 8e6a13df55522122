package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = stderrors.New("sentinel")

func TestNewUserNotFoundError(t *testing.T) {
	err := NewUserNotFoundError(42)

	assert.Equal(t, ErrCodeUserNotFound, err.Code)
	assert.Equal(t, "No user found with ID 42", err.Message)
	assert.False(t, err.Retryable)
	assert.Equal(t, int64(42), err.Metadata["userId"])
	assert.Contains(t, err.Error(), "USER_NOT_FOUND")
}

func TestNewStageFailedError(t *testing.T) {
	t.Run("keeps the code of a structured cause", func(t *testing.T) {
		cause := NewQueryTimeoutError("menu", errSentinel)
		err := NewStageFailedError("analysis", cause)

		assert.Equal(t, ErrCodeQueryTimeout, err.Code)
		assert.True(t, err.Retryable)
		assert.Equal(t, "analysis", err.Metadata["stageId"])
		assert.True(t, stderrors.Is(err, errSentinel))
		assert.Nil(t, cause.Metadata["stageId"])
	})

	t.Run("plain errors become STAGE_FAILED", func(t *testing.T) {
		err := NewStageFailedError("collection", errSentinel)

		assert.Equal(t, ErrCodeStageFailed, err.Code)
		assert.Equal(t, "collection", err.Metadata["stageId"])
		assert.True(t, stderrors.Is(err, errSentinel))
	})
}

func TestAsStandardError(t *testing.T) {
	assert.Nil(t, AsStandardError(nil))

	wrapped := fmt.Errorf("outer: %w", NewValidationError("age missing"))
	std := AsStandardError(wrapped)
	assert.Equal(t, ErrCodeValidationFailed, std.Code)

	internal := AsStandardError(errSentinel)
	assert.Equal(t, ErrCodeInternal, internal.Code)
	assert.Equal(t, "sentinel", internal.Details)
	assert.True(t, stderrors.Is(internal, errSentinel))
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeStoreUnavailable, 3},
		{ErrCodeQueryExecutionFailed, 3},
		{ErrCodeUpstreamUnavailable, 3},
		{ErrCodeQueryTimeout, 2},
		{ErrCodeUpstreamTimeout, 1},
		{ErrCodeUserNotFound, 0},
		{ErrCodeValidationFailed, 0},
		{ErrCodeInvalidPipeline, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetRetryCount(tt.code), string(tt.code))
		assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code), string(tt.code))
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", GetErrorCategory(ErrCodeUserNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeStoreUnavailable))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeUpstreamMalformedResponse))
	assert.Equal(t, "PIPELINE", GetErrorCategory(ErrCodeStageDependencyMissing))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeUnknownActivityLevel))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable", func(t *testing.T) {
		std := NewStoreUnavailableError(errSentinel).WithMetadata("stageId", "collection")
		bpmn := ConvertToBPMNError(std)

		assert.Equal(t, "STORE_UNAVAILABLE", bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
		vars := bpmn.ToErrorVariables()
		assert.Equal(t, "STORE_UNAVAILABLE", vars["errorCode"])
		assert.Equal(t, "DATABASE", vars["errorCategory"])
		assert.Equal(t, "collection", vars["stageId"])
		assert.Equal(t, true, vars["retryable"])
	})

	t.Run("malformed upstream response is not retried", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewUpstreamMalformedResponseError("genai", errSentinel))
		require.NotNil(t, bpmn)
		assert.Equal(t, 0, bpmn.Retries)
		assert.False(t, bpmn.Retryable)
	})
}
