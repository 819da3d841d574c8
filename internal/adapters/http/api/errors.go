package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/pkg/metrics"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrRender     = errors.New("render failed")
)

// NewKind returns kind annotated with the operation that produced it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind returns err classified as kind and annotated with op.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// statusFor maps a submission error to the HTTP status of the response.
func statusFor(err error) int {
	switch service.Outcome(err) {
	case metrics.OutcomeValidation:
		return http.StatusBadRequest
	case metrics.OutcomeInFlight:
		return http.StatusConflict
	case metrics.OutcomeBusy:
		return http.StatusServiceUnavailable
	case metrics.OutcomeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
