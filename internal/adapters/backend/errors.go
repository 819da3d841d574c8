package backend

import (
	"errors"
	"fmt"
)

// Sentinel kinds for analysis service errors.
var (
	ErrServer         = errors.New("analysis service error")
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrTimeout        = errors.New("analysis service timed out")
	ErrTransport      = errors.New("analysis service unreachable")
	ErrDecode         = errors.New("malformed analysis response")
)

// HTTPError is a non-2xx reply. Detail is the service's "detail" field, if any.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("analysis service returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("analysis service returned %d", e.Status)
}

func (e *HTTPError) Is(target error) bool { return target == ErrServer }

// Message is the text shown to the user.
func (e *HTTPError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Server error: %d", e.Status)
}

// FailedError is a 2xx reply whose body carries status "failed".
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string {
	if e.Reason != "" {
		return "analysis failed: " + e.Reason
	}
	return "analysis failed"
}

func (e *FailedError) Is(target error) bool { return target == ErrAnalysisFailed }

// Message is the text shown to the user.
func (e *FailedError) Message() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "Analysis failed"
}
