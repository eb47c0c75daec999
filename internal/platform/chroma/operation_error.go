package chroma

import "fmt"

type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorTimeout         OperationErrorCode = "timeout"
	OperationErrorNotFound        OperationErrorCode = "not_found"
	OperationErrorRequestFailed   OperationErrorCode = "request_failed"
)

type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	Collection string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "chroma operation failed"
	}
	detail := e.Message
	if detail == "" && e.Cause != nil {
		detail = e.Cause.Error()
	}
	if detail == "" {
		return fmt.Sprintf("chroma %s failed (code=%s status=%d)", e.Operation, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("chroma %s failed (code=%s status=%d): %s", e.Operation, e.Code, e.StatusCode, detail)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// HTTPStatusCode lets retry helpers classify the failure.
func (e *OperationError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func opErr(op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}
