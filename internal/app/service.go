// Package service runs one analysis submission end to end: validate the
// input, hold the per-user loading flag, call the analysis service and
// normalize what comes back.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/coach/internal/adapters/backend"
	repository "github.com/okian/coach/internal/adapters/repository"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/internal/domain/dedupe"
	"github.com/okian/coach/internal/render"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

// Analyzer is the analysis service as seen by Service.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Response, error)
	Health(ctx context.Context) (backend.HealthReport, error)
}

// Service implements the submission flow used by the HTTP handlers and the CLI.
type Service struct {
	mu sync.RWMutex

	// Core components
	analyzer Analyzer
	sessions repository.Store
	inFlight dedupe.Deduper

	// Configuration
	maxInFlight int
	sessionTTL  time.Duration

	// State
	started   bool
	ownsStore *repository.MemoryStore
	running   sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAnalyzer sets the analysis service client. It is required.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) {
		s.analyzer = a
	}
}

// WithSessions replaces the session store built by Start.
func WithSessions(store repository.Store) Option {
	return func(s *Service) {
		s.sessions = store
	}
}

// WithInFlight replaces the in-flight registry built by Start.
func WithInFlight(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.inFlight = d
	}
}

// WithMaxInFlight caps concurrent analyses across users; 0 disables the cap.
func WithMaxInFlight(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxInFlight = n
		}
	}
}

// WithSessionTTL sets how long an upstream session id is reused; 0 disables reuse.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Call Start before Submit.
func New(opts ...Option) *Service {
	s := &Service{
		maxInFlight: 64,
		sessionTTL:  30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components that were not injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.analyzer == nil {
		return ErrNoAnalyzer
	}

	if s.sessions == nil {
		store := repository.NewMemoryStore(ctx, repository.WithTTL(s.sessionTTL))
		s.sessions = store
		s.ownsStore = store
	}
	if s.inFlight == nil {
		s.inFlight = dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.maxInFlight),
			dedupe.WithOnChange(metrics.UpdateInFlight),
		)
	}

	s.started = true
	s.logger.Info(ctx, "submission service started",
		logger.Int("maxInFlight", s.maxInFlight),
		logger.Duration("sessionTTL", s.sessionTTL),
	)
	return nil
}

// Stop refuses new submissions, waits for running ones to return and then
// releases what Start created.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	store := s.ownsStore
	if store != nil {
		s.ownsStore = nil
		s.sessions = nil
	}
	log := s.logger
	s.mu.Unlock()

	s.running.Wait()
	if store != nil {
		store.Close()
	}
	log.Info(context.Background(), "submission service stopped")
}

// Submit validates in, runs the analysis and returns the normalized view.
// A second Submit for the same user while one is running fails with
// ErrInFlight; the running one is not affected.
func (s *Service) Submit(ctx context.Context, in analysis.FormInput) (*render.View, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return nil, ErrNotStarted
	}
	s.running.Add(1)
	analyzer, sessions, inFlight, log := s.analyzer, s.sessions, s.inFlight, s.logger
	s.mu.RUnlock()
	defer s.running.Done()

	req, err := analysis.NewRequest(in)
	if err != nil {
		metrics.RecordSubmission(metrics.OutcomeValidation)
		return nil, err
	}

	if err := inFlight.SeenAndRecord(ctx, req.UserID); err != nil {
		if errors.Is(err, dedupe.ErrFull) {
			metrics.RecordSubmission(metrics.OutcomeBusy)
			log.Warn(ctx, "rejecting submission, too many in flight", logger.String("user_id", req.UserID))
			return nil, ErrBusy
		}
		metrics.RecordSubmission(metrics.OutcomeInFlight)
		log.Info(ctx, "analysis already running", logger.String("user_id", req.UserID))
		return nil, ErrInFlight
	}
	defer inFlight.Unrecord(context.WithoutCancel(ctx), req.UserID)

	if sess, err := sessions.Get(ctx, req.UserID); err == nil {
		req.SessionID = sess.SessionID
	}

	resp, err := analyzer.Analyze(ctx, req)
	if err != nil {
		metrics.RecordSubmission(Outcome(err))
		return nil, err
	}

	if id := resp.SessionID(); id != "" {
		if err := sessions.Put(ctx, req.UserID, id); err != nil {
			log.Warn(ctx, "could not remember session", logger.Error(err))
		}
	}

	start := time.Now()
	view := render.Normalize(resp)
	metrics.RecordRenderLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordSubmission(metrics.OutcomeSuccess)
	return view, nil
}

// Probe checks the analysis service once. Failures are logged at warn level
// and returned for callers that want them.
func (s *Service) Probe(ctx context.Context) (backend.HealthReport, error) {
	if s.analyzer == nil {
		return backend.HealthReport{}, ErrNoAnalyzer
	}
	log := s.logger
	if log == nil {
		log = logger.Get()
	}

	report, err := s.analyzer.Health(ctx)
	if err != nil {
		log.Warn(ctx, "analysis service health probe failed", logger.Error(err))
		return backend.HealthReport{}, err
	}
	log.Info(ctx, "analysis service healthy",
		logger.String("status", report.Status),
		logger.Duration("latency", report.Latency),
	)
	return report, nil
}

// InFlight returns the number of analyses currently running.
func (s *Service) InFlight() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.inFlight == nil {
		return 0
	}
	return s.inFlight.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"maxInFlight": s.maxInFlight,
	}
	if s.started {
		stats["inFlight"] = s.inFlight.Size()
		stats["sessions"] = s.sessions.Count(ctx)
	}
	return stats
}
