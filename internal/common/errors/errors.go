// Package errors provides the structured error taxonomy shared by the
// computation engine, data access tools, the pipeline and the worker surface.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	ErrCodeUnknownActivityLevel ErrorCode = "UNKNOWN_ACTIVITY_LEVEL"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"

	ErrCodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout         ErrorCode = "QUERY_TIMEOUT"

	ErrCodeUpstreamUnavailable       ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout           ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamMalformedResponse ErrorCode = "UPSTREAM_MALFORMED_RESPONSE"

	ErrCodeStageDependencyMissing ErrorCode = "STAGE_DEPENDENCY_MISSING"
	ErrCodeStageFailed            ErrorCode = "STAGE_FAILED"
	ErrCodeInvalidPipeline        ErrorCode = "INVALID_PIPELINE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working on sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after adding a metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// NewUserNotFoundError is the NotFound outcome of a profile lookup.
func NewUserNotFoundError(userID int64) *StandardError {
	return newError(ErrCodeUserNotFound, fmt.Sprintf("No user found with ID %d", userID),
		fmt.Sprintf("userId: %d", userID), false, nil).WithMetadata("userId", userID)
}

// NewUnknownActivityLevelError is raised by the height-free formula only.
func NewUnknownActivityLevelError(level string, cause error) *StandardError {
	return newError(ErrCodeUnknownActivityLevel, "Unknown activity level",
		fmt.Sprintf("activityLevel: %q", level), false, cause)
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false, nil)
}

func NewStoreUnavailableError(err error) *StandardError {
	return newError(ErrCodeStoreUnavailable, "Data store unavailable", err.Error(), true, err)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true, err)
}

func NewQueryTimeoutError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout",
		fmt.Sprintf("queryType: %s", queryType), true, err)
}

func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamUnavailable, fmt.Sprintf("Reasoning service '%s' unavailable", service),
		err.Error(), true, err)
}

func NewUpstreamTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamTimeout, fmt.Sprintf("Reasoning service '%s' timeout", service),
		err.Error(), true, err)
}

func NewUpstreamMalformedResponseError(service string, err error) *StandardError {
	return newError(ErrCodeUpstreamMalformedResponse, fmt.Sprintf("Reasoning service '%s' returned a malformed response", service),
		err.Error(), false, err)
}

func NewStageDependencyMissingError(stageID, dependency string, cause error) *StandardError {
	return newError(ErrCodeStageDependencyMissing, "Stage depends on a stage that does not run before it",
		fmt.Sprintf("stage: %s, dependsOn: %s", stageID, dependency), false, cause).
		WithMetadata("stageId", stageID).
		WithMetadata("dependency", dependency)
}

func NewInvalidPipelineError(details string, cause error) *StandardError {
	return newError(ErrCodeInvalidPipeline, "Invalid pipeline definition", details, false, cause)
}

// NewStageFailedError wraps a stage failure, keeping the original code when the
// cause already carries one.
func NewStageFailedError(stageID string, err error) *StandardError {
	if std, ok := As(err); ok {
		wrapped := *std
		wrapped.Metadata = copyMetadata(std.Metadata)
		wrapped.cause = err
		return wrapped.WithMetadata("stageId", stageID)
	}
	return newError(ErrCodeStageFailed, fmt.Sprintf("Stage '%s' failed", stageID), err.Error(), false, err).
		WithMetadata("stageId", stageID)
}

func copyMetadata(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// As finds the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var std *StandardError
	if stderrors.As(err, &std) {
		return std, true
	}
	return nil, false
}

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	if std, ok := As(err); ok {
		return std
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// GetRetryCount is the number of workflow-engine retries granted per code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreUnavailable,
		ErrCodeQueryExecutionFailed,
		ErrCodeUpstreamUnavailable:
		return 3

	case ErrCodeQueryTimeout:
		return 2

	case ErrCodeUpstreamTimeout:
		return 1

	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "UPSTREAM"):
		return "AI"
	case strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "PIPELINE"):
		return "PIPELINE"
	case strings.Contains(codeStr, "ACTIVITY") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}
