package domain

import (
	"errors"
	"fmt"
)

// EngineError is the unified error type for phasebook.
// Each error has a numeric code and human-readable message.
type EngineError struct {
	Code    int
	Message string
	cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *EngineError) Unwrap() error {
	return e.cause
}

// Is matches any EngineError with the same code, so errors built with
// NewEngineError compare equal to the sentinel of the same code.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewEngineError creates a new EngineError.
func NewEngineError(code int, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// WrapEngineError creates an EngineError that includes a cause.
func WrapEngineError(code int, msg string, cause error) *EngineError {
	if cause == nil {
		return &EngineError{Code: code, Message: msg}
	}
	return &EngineError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause), cause: cause}
}

// ---- Workflow / state machine errors (-32010 to -32039) ----

var (
	ErrPhaseNotFound        = &EngineError{Code: -32010, Message: "phase not found"}
	ErrCompletionGateFailed = &EngineError{Code: -32011, Message: "phase has no content to complete"}
	ErrCatalogInvalid       = &EngineError{Code: -32012, Message: "invalid phase catalog"}
)

// ---- Generation / service errors (-32070 to -32099) ----

var (
	ErrServiceUnavailable = &EngineError{Code: -32070, Message: "generation service failed"}
	ErrMissingCredential  = &EngineError{Code: -32071, Message: "API key is not configured. Please set the API_KEY environment variable."}
	ErrEmptyInstruction   = &EngineError{Code: -32072, Message: "Please enter your question, instructions, or content to process with the AI."}
	ErrGenerationInFlight = &EngineError{Code: -32073, Message: "a generation is already running for this phase"}
	ErrRateLimitExceeded  = &EngineError{Code: -32074, Message: "rate limit exceeded"}
	ErrUnknownProvider    = &EngineError{Code: -32075, Message: "unknown generation provider"}
)

// ---- Store / recovery / config errors (-32130 to -32159) ----

var (
	ErrStoreInit       = &EngineError{Code: -32130, Message: "failed to initialize store"}
	ErrStoreQuery      = &EngineError{Code: -32131, Message: "store query failed"}
	ErrStoreWrite      = &EngineError{Code: -32132, Message: "store write failed"}
	ErrSchemaMigration = &EngineError{Code: -32133, Message: "schema migration failed"}
	ErrMalformedState  = &EngineError{Code: -32134, Message: "persisted workflow state is malformed"}
	ErrConfigInvalid   = &EngineError{Code: -32136, Message: "invalid configuration"}
	ErrExportFailed    = &EngineError{Code: -32137, Message: "document export failed"}
)

// IsServiceError reports whether err belongs to the generation failure family
// that is surfaced to the user as a retryable message.
func IsServiceError(err error) bool {
	var e *EngineError
	if !errors.As(err, &e) {
		return false
	}
	return e.Code <= -32070 && e.Code >= -32099
}
