package convert

import (
	"errors"
	"fmt"

	"site2apk/internal/builder"
	"site2apk/internal/encoder"
	"site2apk/internal/endpoint"
	"site2apk/internal/validate"
)

// ErrInFlight is returned when Run is called while another attempt on the
// same Orchestrator has not finished.
var ErrInFlight = errors.New("a conversion is already in progress")

// errIncompleteForm is the cause attached to KindIncompleteForm failures.
var errIncompleteForm = errors.New("app name, version, archive and icon are all required")

// Kind classifies why an attempt failed.
type Kind string

const (
	KindIncompleteForm        Kind = "incomplete_form"
	KindInvalidInput          Kind = "invalid_input"
	KindEndpointNotConfigured Kind = "endpoint_not_configured"
	KindIORead                Kind = "io_read"
	KindMalformedResponse     Kind = "malformed_response"
	KindRemoteFailure         Kind = "remote_failure"
	KindNetworkFailure        Kind = "network_failure"
	KindInternal              Kind = "internal"
)

// Failure is the terminal error of an attempt.
type Failure struct {
	Kind Kind
	// Input is set for KindInvalidInput.
	Input validate.InvalidInputKind
	// Message is the build service's own explanation, shown verbatim when set.
	Message string
	Err     error
}

func (f *Failure) Error() string {
	switch {
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	case f.Message != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	default:
		return string(f.Kind)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify maps any error raised during an attempt onto the failure taxonomy.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	if input, ok := validate.Kind(err); ok {
		return &Failure{Kind: KindInvalidInput, Input: input, Err: err}
	}

	var remote *builder.RemoteError

	switch {
	case errors.Is(err, errIncompleteForm):
		return &Failure{Kind: KindIncompleteForm, Err: err}
	case errors.Is(err, endpoint.ErrNotConfigured):
		return &Failure{Kind: KindEndpointNotConfigured, Err: err}
	case errors.Is(err, endpoint.ErrFetch), errors.Is(err, builder.ErrNetwork):
		return &Failure{Kind: KindNetworkFailure, Err: err}
	case errors.Is(err, encoder.ErrRead):
		return &Failure{Kind: KindIORead, Err: err}
	case errors.Is(err, builder.ErrMalformedResponse), errors.Is(err, encoder.ErrMalformed):
		return &Failure{Kind: KindMalformedResponse, Err: err}
	case errors.As(err, &remote):
		return &Failure{Kind: KindRemoteFailure, Message: remote.Message, Err: err}
	default:
		return &Failure{Kind: KindInternal, Err: err}
	}
}
