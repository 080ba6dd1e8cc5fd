// Package errors provides the standardized error model shared by the comps
// search engine, its HTTP surface and the Camunda job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRequestBody ErrorCode = "INVALID_REQUEST_BODY"

	ErrCodeMarketplaceCredentialsMissing ErrorCode = "MARKETPLACE_CREDENTIALS_MISSING"
	ErrCodeMarketplaceRequestFailed      ErrorCode = "MARKETPLACE_REQUEST_FAILED"
	ErrCodeMarketplaceTimeout            ErrorCode = "MARKETPLACE_TIMEOUT"
	ErrCodeMarketplaceResponseMalformed  ErrorCode = "MARKETPLACE_RESPONSE_MALFORMED"

	ErrCodeHistoryWriteFailed ErrorCode = "HISTORY_WRITE_FAILED"
	ErrCodeHistoryReadFailed  ErrorCode = "HISTORY_READ_FAILED"

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

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

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

// ==========================
// 3. Error Constructors
// ==========================

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

// NewValidationError is returned before any network call is made.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Search request validation failed", details, false, nil)
}

// NewInvalidRequestBodyError covers undecodable JSON bodies and job variables.
func NewInvalidRequestBodyError(err error) *StandardError {
	return newError(ErrCodeInvalidRequestBody, "Malformed request body", errString(err), false, err)
}

// NewCredentialsMissingError is a configuration failure; it is never retried.
func NewCredentialsMissingError(details string) *StandardError {
	return newError(ErrCodeMarketplaceCredentialsMissing, "Marketplace credentials are not configured", details, false, nil)
}

func NewMarketplaceRequestError(err error) *StandardError {
	return newError(ErrCodeMarketplaceRequestFailed, "Marketplace request failed", errString(err), true, err)
}

func NewMarketplaceTimeoutError(err error) *StandardError {
	return newError(ErrCodeMarketplaceTimeout, "Marketplace request timed out", errString(err), true, err)
}

func NewMalformedResponseError(err error) *StandardError {
	return newError(ErrCodeMarketplaceResponseMalformed, "Marketplace response could not be parsed", errString(err), false, err)
}

func NewHistoryWriteError(err error) *StandardError {
	return newError(ErrCodeHistoryWriteFailed, "Failed to record search history", errString(err), true, err)
}

func NewHistoryReadError(err error) *StandardError {
	return newError(ErrCodeHistoryReadFailed, "Failed to read search history", errString(err), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", errString(err), false, err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Conversion
// ==========================

// AsStandardError unwraps err to a *StandardError, wrapping unknown errors
// as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeMarketplaceRequestFailed,
		ErrCodeHistoryWriteFailed,
		ErrCodeHistoryReadFailed:
		return 3
	case ErrCodeMarketplaceTimeout:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status returned by the HTTP surface.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidRequestBody:
		return http.StatusBadRequest
	case ErrCodeMarketplaceCredentialsMissing:
		return http.StatusServiceUnavailable
	case ErrCodeMarketplaceTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeMarketplaceRequestFailed, ErrCodeMarketplaceResponseMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "MARKETPLACE"):
		return "MARKETPLACE"
	case strings.HasPrefix(codeStr, "HISTORY"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
