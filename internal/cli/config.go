// Package cli implements the coachctl commands: one-shot analyses and
// health checks against the analysis service, and a concurrent load run
// against the coach front end.
package cli

import (
	"context"
	"time"

	"github.com/okian/coach/internal/adapters/backend"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/pkg/logger"
)

// Defaults shared by the commands.
const (
	DefaultTimeout = 60 * time.Second
	DefaultWorkers = 4
	DefaultUsers   = 20
)

// Analyzer is the part of the analysis service client the commands use.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Response, error)
	Health(ctx context.Context) (backend.HealthReport, error)
}

// LoadConfig holds configuration for a load run.
type LoadConfig struct {
	FrontURL   string        // Base URL of the coach front end
	Users      int           // Number of distinct users to submit for
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // Per-request timeout
	Codeforces string        // Codeforces handle sent for every user
	LeetCode   string        // LeetCode handle sent for every user
	RunID      string        // Prefix for generated user ids; random when empty
	Logger     logger.Logger // Discards when nil
}

// LoadStats holds the result of a load run.
type LoadStats struct {
	Submitted int            `json:"submitted"`
	Succeeded int            `json:"succeeded"`
	Outcomes  map[string]int `json:"outcomes"`
	Min       time.Duration  `json:"min"`
	Mean      time.Duration  `json:"mean"`
	P95       time.Duration  `json:"p95"`
	Max       time.Duration  `json:"max"`
	Duration  time.Duration  `json:"duration"`
}
