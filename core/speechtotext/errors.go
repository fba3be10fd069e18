package speechtotext

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned by Listen when the device is still winding a
// previous session up or down. Callers are expected to retry shortly.
var ErrInvalidState = errors.New("recognition device is mid-transition")

type ErrorCode string

const (
	ErrorCodeNoSpeech          ErrorCode = "no-speech"
	ErrorCodeAborted           ErrorCode = "aborted"
	ErrorCodeAudioCapture      ErrorCode = "audio-capture"
	ErrorCodeNetwork           ErrorCode = "network"
	ErrorCodeNotAllowed        ErrorCode = "not-allowed"
	ErrorCodeServiceNotAllowed ErrorCode = "service-not-allowed"
	ErrorCodeUnknown           ErrorCode = "unknown"
)

// RecognitionError is the device's own error taxonomy. The listening session
// decides what each code means for its lifecycle.
type RecognitionError struct {
	Code ErrorCode
	Err  error
}

func NewRecognitionError(code ErrorCode, err error) *RecognitionError {
	return &RecognitionError{Code: code, Err: err}
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("recognition error: %s", e.Code)
	}
	return fmt.Sprintf("recognition error: %s: %v", e.Code, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// CodeOf extracts the recognition error code, defaulting to unknown.
func CodeOf(err error) ErrorCode {
	var recognitionErr *RecognitionError
	if errors.As(err, &recognitionErr) {
		return recognitionErr.Code
	}
	return ErrorCodeUnknown
}
