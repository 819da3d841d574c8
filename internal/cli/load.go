package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

const (
	outcomeTransport = "transport"
	outcomeUnknown   = "unknown"
	percentile95     = 0.95
)

type sample struct {
	outcome string
	latency time.Duration
}

// Load submits one analysis per generated user to the front end's
// /api/analyze using a pool of workers and returns what it observed.
// Rejections such as in_flight or busy are counted, not treated as errors.
func Load(ctx context.Context, cfg LoadConfig) (*LoadStats, error) {
	if cfg.Users <= 0 {
		return nil, fmt.Errorf("users must be positive, got %d", cfg.Users)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()[:8]
	}
	handles := analysis.FormInput{Codeforces: cfg.Codeforces, LeetCode: cfg.LeetCode}.Normalize()
	if handles.Codeforces == "" && handles.LeetCode == "" {
		return nil, analysis.ErrMissingHandle
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("load")
	log.Info(ctx, "starting load run",
		logger.String("frontURL", cfg.FrontURL),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.String("runID", cfg.RunID),
	)

	client := &http.Client{Timeout: cfg.Timeout}
	url := strings.TrimRight(cfg.FrontURL, "/") + "/api/analyze"

	start := time.Now()
	users := make(chan int, cfg.Workers*2)
	results := make(chan sample, cfg.Users)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range users {
				in := handles
				in.UserID = fmt.Sprintf("load-%s-%d", cfg.RunID, n)
				results <- submitOne(ctx, client, url, in)
			}
		}()
	}

	go func() {
		defer close(users)
		for n := 0; n < cfg.Users; n++ {
			select {
			case <-ctx.Done():
				return
			case users <- n:
			}
		}
	}()

	wg.Wait()
	close(results)

	samples := make([]sample, 0, cfg.Users)
	for s := range results {
		samples = append(samples, s)
	}
	stats := summarize(samples)
	stats.Duration = time.Since(start)

	log.Info(ctx, "load run finished",
		logger.Int("submitted", stats.Submitted),
		logger.Int("succeeded", stats.Succeeded),
		logger.Duration("duration", stats.Duration),
	)
	return stats, ctx.Err()
}

func submitOne(ctx context.Context, client *http.Client, url string, in analysis.FormInput) sample {
	body, err := json.Marshal(map[string]any{
		"user_id": in.UserID,
		"handles": map[string]string{
			analysis.PlatformCodeforces: in.Codeforces,
			analysis.PlatformLeetCode:   in.LeetCode,
		},
	})
	if err != nil {
		return sample{outcome: outcomeUnknown}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sample{outcome: outcomeTransport}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return sample{outcome: outcomeTransport, latency: time.Since(start)}
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if err != nil {
		return sample{outcome: outcomeTransport, latency: latency}
	}

	if resp.StatusCode == http.StatusOK {
		return sample{outcome: metrics.OutcomeSuccess, latency: latency}
	}
	var coded struct {
		Code string `json:"code"`
	}
	if json.Unmarshal(data, &coded) != nil || coded.Code == "" {
		return sample{outcome: outcomeUnknown, latency: latency}
	}
	return sample{outcome: coded.Code, latency: latency}
}

func summarize(samples []sample) *LoadStats {
	stats := &LoadStats{Submitted: len(samples), Outcomes: map[string]int{}}
	if len(samples) == 0 {
		return stats
	}

	latencies := make([]time.Duration, 0, len(samples))
	var total time.Duration
	for _, s := range samples {
		stats.Outcomes[s.outcome]++
		if s.outcome == metrics.OutcomeSuccess {
			stats.Succeeded++
		}
		latencies = append(latencies, s.latency)
		total += s.latency
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	stats.Min = latencies[0]
	stats.Max = latencies[len(latencies)-1]
	stats.Mean = total / time.Duration(len(latencies))
	idx := int(float64(len(latencies))*percentile95+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	stats.P95 = latencies[idx]
	return stats
}

// PrintLoadStats writes a short report of stats to w.
func PrintLoadStats(w io.Writer, stats *LoadStats) {
	header := color.New(color.FgCyan, color.Bold)
	_, _ = header.Fprintln(w, "Load run")

	var rate float64
	if stats.Submitted > 0 {
		rate = float64(stats.Succeeded) / float64(stats.Submitted) * 100
	}
	_, _ = fmt.Fprintf(w, "  %-12s %d\n", "Submitted:", stats.Submitted)
	_, _ = fmt.Fprintf(w, "  %-12s %d (%.1f%%)\n", "Succeeded:", stats.Succeeded, rate)

	names := make([]string, 0, len(stats.Outcomes))
	for name := range stats.Outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "    %-16s %d\n", name, stats.Outcomes[name])
	}

	round := func(d time.Duration) time.Duration { return d.Round(time.Millisecond) }
	_, _ = fmt.Fprintf(w, "  %-12s min %s  mean %s  p95 %s  max %s\n", "Latency:",
		round(stats.Min), round(stats.Mean), round(stats.P95), round(stats.Max))
	_, _ = fmt.Fprintf(w, "  %-12s %s\n", "Duration:", round(stats.Duration))
}
