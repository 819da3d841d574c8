package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/internal/render"
)

// Error carries the text shown to the user next to the underlying cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Analyze validates in, runs one analysis and writes the result to out in
// format. Progress goes to status, which is usually stderr. Invalid input
// fails before any request is made.
func Analyze(ctx context.Context, a Analyzer, in analysis.FormInput, out, status io.Writer, format string) error {
	req, err := analysis.NewRequest(in)
	if err != nil {
		return &Error{Message: service.UserMessage(err), Err: err}
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(status))
	s.Suffix = " Analyzing your coding profile... This may take up to 60 seconds."
	s.Start()
	resp, err := a.Analyze(ctx, req)
	s.Stop()
	if err != nil {
		return &Error{Message: service.UserMessage(err), Err: err}
	}

	return render.Write(out, render.Normalize(resp), format)
}

// Health probes the analysis service once and reports the result on out.
func Health(ctx context.Context, a Analyzer, out io.Writer) error {
	report, err := a.Health(ctx)
	if err != nil {
		_, _ = color.New(color.FgRed).Fprintf(out, "✗ analysis service unreachable: %v\n", err)
		var herr interface{ Message() string }
		if errors.As(err, &herr) {
			return &Error{Message: herr.Message(), Err: err}
		}
		return &Error{Message: service.MsgUnavailable, Err: err}
	}
	_, _ = color.New(color.FgGreen).Fprintf(out, "✓ analysis service %s (%s)\n", orUnknown(report.Status), report.Latency.Round(time.Millisecond))
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case analysis.IsValidation(err):
		return 2
	default:
		return 1
	}
}

// Describe renders err for the terminal.
func Describe(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	if analysis.IsValidation(err) {
		return service.UserMessage(err)
	}
	return fmt.Sprint(err)
}
