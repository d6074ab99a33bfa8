package llm

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrModelInvocation   = errors.New("model invocation failed")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrUnknownBackend    = errors.New("unknown backend")
)

// MissingCredentialError means no API key is stored for the selected backend.
type MissingCredentialError struct {
	Backend string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no API key stored for backend %q", e.Backend)
}

func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

type InvocationError struct {
	Backend string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool {
	return target == ErrModelInvocation
}

// MalformedResponseError keeps the raw model output for diagnostics only;
// it must not be shown to the end user.
type MalformedResponseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
