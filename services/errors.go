package services

import (
	"fmt"
	"net/http"
)

// ValidationError indicates a malformed or incomplete biosketch request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ResolutionError indicates a referenced entity is missing or not owned by
// the caller.
type ResolutionError struct {
	Message string
}

func (e *ResolutionError) Error() string {
	return e.Message
}

// ToolchainMissingError indicates a required external binary is absent.
type ToolchainMissingError struct {
	Tool  string
	Cause error
}

func (e *ToolchainMissingError) Error() string {
	return fmt.Sprintf("required tool not found: %s", e.Tool)
}

func (e *ToolchainMissingError) Unwrap() error {
	return e.Cause
}

// CompilationError indicates the external tool ran but produced no usable
// output. Diagnostics carries the tool's combined output verbatim so
// operators can debug from the error payload.
type CompilationError struct {
	Message     string
	Diagnostics string
	Cause       error
}

func (e *CompilationError) Error() string {
	return e.Message
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// EmptyOutputError indicates the tool reported success but the artifact is
// zero bytes.
type EmptyOutputError struct {
	Artifact string
}

func (e *EmptyOutputError) Error() string {
	return fmt.Sprintf("generated document is empty: %s", e.Artifact)
}

// GenerationError is the catch-all for any other failure in the
// assemble/render/compile chain.
type GenerationError struct {
	Message string
	Hint    string
	Cause   error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Hint returns the operational remediation hint for an error, or "".
func Hint(err error) string {
	switch e := err.(type) {
	case *ToolchainMissingError:
		return "ensure the typesetting toolchain is installed and on PATH"
	case *GenerationError:
		return e.Hint
	default:
		return ""
	}
}

// HTTPStatus maps a pipeline error to the HTTP status code of the response.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ValidationError:
		return http.StatusBadRequest
	case *ResolutionError:
		return http.StatusNotFound
	case *ToolchainMissingError:
		return http.StatusServiceUnavailable
	case *CompilationError, *EmptyOutputError, *GenerationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
