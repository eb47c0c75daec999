package pdftext

import (
	"errors"
	"fmt"
)

// Kind classifies why text could not be extracted.
type Kind string

const (
	KindCorrupted         Kind = "corrupted"
	KindPasswordProtected Kind = "password_protected"
	KindEmpty             Kind = "empty"
	KindBackend           Kind = "backend_failed"
)

type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "pdf extraction failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("pdf extraction failed (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("pdf extraction failed (%s)", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the classification of err, KindBackend for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindBackend
}

// Guidance is the user-facing message for a failure kind.
func Guidance(kind Kind) string {
	switch kind {
	case KindCorrupted:
		return "PDF is corrupted or has invalid structure. Please try uploading a different version of this file."
	case KindPasswordProtected:
		return "PDF is password protected. Please remove the password and try again."
	case KindEmpty:
		return "No readable text content found in PDF. The file might be image-based or corrupted."
	default:
		return "Failed to extract text from PDF."
	}
}
