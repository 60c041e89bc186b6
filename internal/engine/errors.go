package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds of the summarization pipeline. Callers match them with errors.Is.
var (
	ErrInvalidURL              = errors.New("invalid youtube url")
	ErrNoTranscriptAvailable   = errors.New("no transcript available")
	ErrTranscriptUnavailable   = errors.New("transcript too short or unavailable")
	ErrInferenceFailure        = errors.New("inference failure")
	ErrMalformedResponse       = errors.New("malformed ai response")
	ErrSummaryGenerationFailed = errors.New("summary generation failed")
	ErrForbidden               = errors.New("forbidden")
	ErrNotFound                = errors.New("not found")
	ErrDuplicate               = errors.New("record already exists")
	ErrPipelineTimeout         = errors.New("pipeline timeout")
)

// IsRetryable reports whether the whole operation may succeed if the caller tries again.
// Transcript and input errors are not retryable without the input changing.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInferenceFailure) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrPipelineTimeout)
}

// InferenceError is a failed chat-completion call. It matches ErrInferenceFailure.
type InferenceError struct {
	StatusCode int // 0 for transport errors
	Detail     string
	Err        error
}

func (e *InferenceError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrInferenceFailure.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *InferenceError) Is(target error) bool { return target == ErrInferenceFailure }

func (e *InferenceError) Unwrap() error { return e.Err }

// NoTranscriptError is returned when every transcript strategy failed.
// It matches ErrNoTranscriptAvailable and unwraps to the last strategy error.
type NoTranscriptError struct {
	VideoID  string
	Attempts []string
	LastErr  error
}

func (e *NoTranscriptError) Error() string {
	msg := fmt.Sprintf("%s for %s after %d strategies", ErrNoTranscriptAvailable, e.VideoID, len(e.Attempts))
	if e.LastErr != nil {
		msg += ", last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *NoTranscriptError) Is(target error) bool { return target == ErrNoTranscriptAvailable }

func (e *NoTranscriptError) Unwrap() error { return e.LastErr }

// HTTPStatusError is a non-2xx response from an upstream endpoint.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
