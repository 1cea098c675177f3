package types

import "fmt"

// ErrorCode represents a unified error code across the coordination engine.
type ErrorCode string

// Validation and routing error codes.
const (
	ErrValidation         ErrorCode = "VALIDATION_ERROR"
	ErrInvalidMessage     ErrorCode = "INVALID_MESSAGE"
	ErrInvalidMessageType ErrorCode = "INVALID_MESSAGE_TYPE"
	ErrAgentNotFound      ErrorCode = "AGENT_NOT_FOUND"
	ErrAgentOffline       ErrorCode = "AGENT_OFFLINE"
	ErrCapabilityNotFound ErrorCode = "CAPABILITY_NOT_FOUND"
	ErrDeliveryFailed     ErrorCode = "DELIVERY_FAILED"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
)

// Workflow error codes.
const (
	ErrMaxIterations   ErrorCode = "MAX_ITERATIONS_EXCEEDED"
	ErrWorkflowTimeout ErrorCode = "WORKFLOW_TIMEOUT"
	ErrNoNode          ErrorCode = "NO_NODE_FOR_AGENT"
)

// Lifecycle error codes. These indicate protocol misuse by the embedder and
// are surfaced immediately.
const (
	ErrAlreadyStarted ErrorCode = "ALREADY_STARTED"
	ErrNotStarted     ErrorCode = "NOT_STARTED"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	AgentID   string    `json:"agent_id,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithAgent tags the error with the agent it concerns.
func (e *Error) WithAgent(agentID string) *Error {
	e.AgentID = agentID
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, or "" if the error is
// not a structured Error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is a structured Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
