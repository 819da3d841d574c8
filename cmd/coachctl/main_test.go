package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/okian/coach/internal/cli"
	. "github.com/smartystreets/goconvey/convey"
)

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	Convey("Given an analysis service", t, func() {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","growth_metrics":{"total_solved":42}}`))
		}))
		defer srv.Close()

		Convey("When analyzing with JSON output", func() {
			out, err := execute("analyze", "--backend", srv.URL, "-u", "alice", "--codeforces", "tourist", "-o", "json")

			Convey("Then the view is printed", func() {
				So(err, ShouldBeNil)
				var view map[string]any
				So(json.Unmarshal([]byte(out), &view), ShouldBeNil)
				So(view, ShouldContainKey, "metrics")
				So(atomic.LoadInt32(&calls), ShouldEqual, 1)
			})
		})

		Convey("When no handle is given", func() {
			_, err := execute("analyze", "--backend", srv.URL, "-u", "alice")

			Convey("Then it fails without calling the service", func() {
				So(cli.Describe(err), ShouldEqual, "Please enter at least one platform handle")
				So(cli.ExitCode(err), ShouldEqual, 2)
				So(atomic.LoadInt32(&calls), ShouldEqual, 0)
			})
		})

		Convey("When checking health", func() {
			out, err := execute("health", "--backend", srv.URL)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "analysis service")
		})
	})
}

func TestVersionCommand(t *testing.T) {
	Convey("Given the version command", t, func() {
		out, err := execute("version")
		So(err, ShouldBeNil)
		So(out, ShouldEqual, "coachctl dev\n")
	})
}
