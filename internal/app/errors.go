package service

import (
	"errors"

	"github.com/okian/coach/internal/adapters/backend"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/pkg/metrics"
)

// Sentinel kinds for submission errors.
var (
	ErrInFlight   = errors.New("analysis already running for user")
	ErrBusy       = errors.New("too many analyses in flight")
	ErrNotStarted = errors.New("submission service not started")
	ErrNoAnalyzer = errors.New("no analyzer configured")
)

// Banner texts shown to the user.
const (
	MsgMissingUserID = "Please enter a User ID"
	MsgMissingHandle = "Please enter at least one platform handle"
	MsgInFlight      = "An analysis is already running for this user"
	MsgBusy          = "Too many analyses are running. Please try again shortly."
	MsgTimeout       = "Analysis timed out. The server is taking too long to respond."
	MsgUnavailable   = "Failed to analyze. Please check if the server is running."
)

type messager interface {
	Message() string
}

// UserMessage returns the single line shown to the user for err.
func UserMessage(err error) string {
	var m messager
	switch {
	case err == nil:
		return ""
	case errors.Is(err, analysis.ErrMissingUserID):
		return MsgMissingUserID
	case errors.Is(err, analysis.ErrMissingHandle):
		return MsgMissingHandle
	case errors.Is(err, ErrInFlight):
		return MsgInFlight
	case errors.Is(err, ErrBusy):
		return MsgBusy
	case errors.As(err, &m):
		return m.Message()
	case errors.Is(err, backend.ErrTimeout):
		return MsgTimeout
	default:
		return MsgUnavailable
	}
}

// Outcome returns the coarse kind of err, also used as the metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case analysis.IsValidation(err):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrInFlight):
		return metrics.OutcomeInFlight
	case errors.Is(err, ErrBusy):
		return metrics.OutcomeBusy
	default:
		return backend.Outcome(err)
	}
}
