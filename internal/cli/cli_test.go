package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/coach/internal/adapters/backend"
	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/internal/render"
	. "github.com/smartystreets/goconvey/convey"
)

type stubAnalyzer struct {
	calls  int32
	resp   analysis.Response
	err    error
	health error
}

func (s *stubAnalyzer) Analyze(context.Context, analysis.Request) (analysis.Response, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.resp, s.err
}

func (s *stubAnalyzer) Health(context.Context) (backend.HealthReport, error) {
	if s.health != nil {
		return backend.HealthReport{}, s.health
	}
	return backend.HealthReport{Status: "healthy", Latency: 3 * time.Millisecond}, nil
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	Convey("Given an analyzer that succeeds", t, func() {
		stub := &stubAnalyzer{resp: analysis.Response{
			"growth_metrics": map[string]any{"streak": map[string]any{"current": float64(5)}},
		}}
		var out, status bytes.Buffer

		Convey("When the input is valid", func() {
			err := Analyze(ctx, stub, analysis.FormInput{UserID: "alice", Codeforces: "tourist"}, &out, &status, render.FormatJSON)

			Convey("Then the normalized view is written", func() {
				So(err, ShouldBeNil)
				var view render.View
				So(json.Unmarshal(out.Bytes(), &view), ShouldBeNil)
				So(view.Metrics[3].Value, ShouldEqual, "5")
			})
		})

		Convey("When the user id is missing", func() {
			err := Analyze(ctx, stub, analysis.FormInput{Codeforces: "tourist"}, &out, &status, render.FormatHuman)

			Convey("Then nothing is sent and the exit code marks bad input", func() {
				So(atomic.LoadInt32(&stub.calls), ShouldEqual, 0)
				So(Describe(err), ShouldEqual, "Please enter a User ID")
				So(ExitCode(err), ShouldEqual, 2)
				So(out.Len(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an analyzer that times out", t, func() {
		stub := &stubAnalyzer{err: backend.ErrTimeout}
		var out, status bytes.Buffer
		err := Analyze(ctx, stub, analysis.FormInput{UserID: "bob", LeetCode: "bob"}, &out, &status, render.FormatHuman)

		Convey("Then the timeout message is reported", func() {
			So(Describe(err), ShouldEqual, service.MsgTimeout)
			So(errors.Is(err, backend.ErrTimeout), ShouldBeTrue)
			So(ExitCode(err), ShouldEqual, 1)
			So(out.Len(), ShouldEqual, 0)
		})
	})
}

func TestHealth(t *testing.T) {
	Convey("Given a healthy analysis service", t, func() {
		var out bytes.Buffer
		err := Health(context.Background(), &stubAnalyzer{}, &out)
		So(err, ShouldBeNil)
		So(out.String(), ShouldContainSubstring, "analysis service healthy (3ms)")
	})

	Convey("Given a failing analysis service", t, func() {
		var out bytes.Buffer
		err := Health(context.Background(), &stubAnalyzer{health: &backend.HTTPError{Status: 503}}, &out)
		So(Describe(err), ShouldEqual, "Server error: 503")
		So(out.String(), ShouldContainSubstring, "unreachable")
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a front end that rejects every third user", t, func() {
		var seen int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				UserID string `json:"user_id"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			n := atomic.AddInt32(&seen, 1)
			w.Header().Set("Content-Type", "application/json")
			if !strings.HasPrefix(body.UserID, "load-run1-") || r.URL.Path != "/api/analyze" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"bad_request"}`))
				return
			}
			if n%3 == 0 {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"code":"in_flight","message":"busy"}`))
				return
			}
			_, _ = w.Write([]byte(`{"view":{},"fragments":{}}`))
		}))
		defer srv.Close()

		stats, err := Load(context.Background(), LoadConfig{
			FrontURL:   srv.URL + "/",
			Users:      9,
			Workers:    3,
			Codeforces: "tourist",
			RunID:      "run1",
		})

		Convey("Then every user is submitted once and outcomes are counted", func() {
			So(err, ShouldBeNil)
			So(stats.Submitted, ShouldEqual, 9)
			So(stats.Succeeded, ShouldEqual, 6)
			So(stats.Outcomes, ShouldResemble, map[string]int{"success": 6, "in_flight": 3})
			So(stats.Max, ShouldBeGreaterThanOrEqualTo, stats.P95)
			So(stats.P95, ShouldBeGreaterThanOrEqualTo, stats.Min)
		})

		Convey("Then the report lists the outcomes", func() {
			var out bytes.Buffer
			PrintLoadStats(&out, stats)
			So(out.String(), ShouldContainSubstring, "Succeeded:   6 (66.7%)")
			So(out.String(), ShouldContainSubstring, "in_flight")
		})
	})

	Convey("Given a load run without handles", t, func() {
		_, err := Load(context.Background(), LoadConfig{FrontURL: "http://127.0.0.1:1", Users: 1})
		So(err, ShouldEqual, analysis.ErrMissingHandle)
		So(Describe(err), ShouldEqual, service.MsgMissingHandle)
		So(ExitCode(err), ShouldEqual, 2)
	})

	Convey("Given an unreachable front end", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		stats, err := Load(context.Background(), LoadConfig{FrontURL: url, Users: 2, Workers: 1, LeetCode: "x", Timeout: time.Second})
		So(err, ShouldBeNil)
		So(stats.Outcomes["transport"], ShouldEqual, 2)
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given twenty samples", t, func() {
		samples := make([]sample, 0, 20)
		for i := 1; i <= 20; i++ {
			samples = append(samples, sample{outcome: "success", latency: time.Duration(i) * time.Millisecond})
		}
		stats := summarize(samples)

		So(stats.Min, ShouldEqual, time.Millisecond)
		So(stats.Max, ShouldEqual, 20*time.Millisecond)
		So(stats.P95, ShouldEqual, 19*time.Millisecond)
		So(stats.Mean, ShouldEqual, 10500*time.Microsecond)
	})

	Convey("Given no samples", t, func() {
		stats := summarize(nil)
		So(stats.Submitted, ShouldEqual, 0)
		So(stats.Outcomes, ShouldBeEmpty)
	})
}
