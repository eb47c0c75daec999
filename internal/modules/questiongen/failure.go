package questiongen

import "fmt"

type FailureKind string

const (
	// KindProviderUnavailable covers transport errors, timeouts and backend
	// refusals.
	KindProviderUnavailable FailureKind = "provider_unavailable"
	// KindMalformedOutput means no decodable JSON object came back.
	KindMalformedOutput FailureKind = "malformed_output"
	// KindSchemaInvalid means the object decoded but failed validation.
	KindSchemaInvalid FailureKind = "schema_invalid"
	KindExhausted     FailureKind = "exhausted"
)

// Failure is the only error Generate and Regenerate return. Kind is
// Exhausted once every attempt was spent; Last is the kind of the final
// attempt.
type Failure struct {
	Kind     FailureKind
	Last     FailureKind
	Attempts int
	Cause    error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Kind == KindExhausted {
		return fmt.Sprintf("question generation exhausted after %d attempts (last: %s): %v", f.Attempts, f.Last, f.Cause)
	}
	return fmt.Sprintf("question generation failed (%s): %v", f.Kind, f.Cause)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

// attemptError is one failed cycle before it is folded into a Failure.
type attemptError struct {
	kind FailureKind
	err  error
}

func (e *attemptError) Error() string { return string(e.kind) + ": " + e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }
