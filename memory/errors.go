package memory

import (
	"errors"
	"fmt"
)

// Validation error codes surfaced to callers.
const (
	// CodeMissingIdentity: no user_id, agent_id or run_id was supplied.
	CodeMissingIdentity = "VALIDATION_001"
	// CodeInvalidMemoryType: an unsupported memory type was requested.
	CodeInvalidMemoryType = "VALIDATION_002"
	// CodeInvalidMessages: the messages argument is empty or malformed.
	CodeInvalidMessages = "VALIDATION_003"
)

// ErrNotFound is returned when a memory id does not exist.
var ErrNotFound = errors.New("memory not found")

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ExtractionError reports that the fact-extraction LLM response could not
// be parsed, even after sanitization.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("fact extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ReconciliationError reports that the reconciliation LLM response could
// not be parsed. It aborts the whole Add call; no writes occur.
type ReconciliationError struct {
	Raw string
	Err error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("memory reconciliation failed: %v", e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
