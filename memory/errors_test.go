package memory

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Code: CodeMissingIdentity, Message: "identity required"}
	if !strings.HasPrefix(err.Error(), CodeMissingIdentity) {
		t.Errorf("Error string must start with the code: %q", err.Error())
	}
}

func TestExtractionError_Unwrap(t *testing.T) {
	cause := errors.New("bad json")
	err := &ExtractionError{Raw: "oops", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ExtractionError must unwrap to its cause")
	}
}

func TestReconciliationError_Unwrap(t *testing.T) {
	cause := errors.New("bad json")
	err := &ReconciliationError{Raw: "oops", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ReconciliationError must unwrap to its cause")
	}
}
