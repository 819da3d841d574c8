// Package backend is the HTTP client for the analysis service.
//
// Every call is bounded by a deadline. Failures are reported with the
// sentinel kinds in errors.go so callers can tell a slow service from an
// unreachable one and from one that answered with an error.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

const (
	analyzePath = "/analyze"
	healthPath  = "/health"

	defaultTimeout       = 60 * time.Second
	defaultHealthTimeout = 5 * time.Second

	// maxBodyBytes caps how much of a reply is read.
	maxBodyBytes = 8 << 20

	opAnalyze = "analyze"
	opHealth  = "health"
)

// HealthReport is the result of a successful health probe.
type HealthReport struct {
	Status  string        `json:"status" yaml:"status"`
	Latency time.Duration `json:"latency" yaml:"latency"`
}

// Client talks to one analysis service instance.
type Client struct {
	baseURL       string
	http          *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
	log           logger.Logger
	requestID     func() string
}

// New creates a client for baseURL (scheme and host, no trailing slash).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{},
		timeout:       defaultTimeout,
		healthTimeout: defaultHealthTimeout,
		log:           logger.Nop(),
		requestID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze posts req to /analyze and returns the decoded body. A reply whose
// status field is "failed" is returned as *FailedError. Nothing partial is
// ever returned alongside an error.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (analysis.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	start := time.Now()
	id := c.requestID()
	log := c.log.With(logger.String("request_id", id), logger.String("user_id", req.UserID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", id)

	log.Debug(ctx, "posting analysis request", logger.Int("handles", len(req.Handles)))

	status, body, err := c.do(ctx, httpReq)
	if err != nil {
		c.observe(opAnalyze, err, start)
		log.Warn(ctx, "analysis request failed", logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	resp, err := c.decodeAnalysis(status, body)
	c.observe(opAnalyze, err, start)
	if err != nil {
		log.Warn(ctx, "analysis rejected", logger.Error(err), logger.Int("status", status))
		return nil, err
	}

	log.Info(ctx, "analysis received", logger.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func (c *Client) decodeAnalysis(status int, body []byte) (analysis.Response, error) {
	if status < 200 || status > 299 {
		return nil, &HTTPError{Status: status, Detail: detail(body)}
	}
	resp, err := analysis.DecodeResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if resp.Failed() {
		return nil, &FailedError{Reason: resp.ErrorMessage()}
	}
	return resp, nil
}

// Health probes GET /health with the health timeout.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", c.requestID())

	status, body, err := c.do(ctx, httpReq)
	if err == nil && (status < 200 || status > 299) {
		err = &HTTPError{Status: status, Detail: detail(body)}
	}
	c.observe(opHealth, err, start)
	metrics.SetBackendUp(err == nil)
	if err != nil {
		return HealthReport{}, err
	}

	report := HealthReport{Status: "ok", Latency: time.Since(start)}
	var parsed struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Status != "" {
		report.Status = parsed.Status
	}
	return report, nil
}

// do sends req and reads the whole body under ctx.
func (c *Client) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, classify(ctx, err)
	}
	return resp.StatusCode, body, nil
}

// classify maps a transport-level failure to ErrTimeout or ErrTransport.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// detail extracts a string "detail" field from an error body.
func detail(body []byte) string {
	var parsed struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	s, _ := parsed.Detail.(string)
	return s
}

func (c *Client) observe(op string, err error, start time.Time) {
	metrics.RecordUpstreamLatency(op, Outcome(err), float64(time.Since(start).Milliseconds()))
}

// Outcome maps an error from this package to a metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, ErrServer):
		return metrics.OutcomeServer
	case errors.Is(err, ErrAnalysisFailed):
		return metrics.OutcomeFailed
	case errors.Is(err, ErrDecode):
		return metrics.OutcomeDecode
	default:
		return metrics.OutcomeTransport
	}
}
