package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/okian/coach/internal/adapters/backend"
	"github.com/okian/coach/internal/adapters/http/api"
	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/internal/render"
	"github.com/okian/coach/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies answers Submit with a canned view or error.
type mockDependencies struct {
	mu       sync.Mutex
	inputs   []analysis.FormInput
	view     *render.View
	err      error
	probeErr error
	inFlight int64
	stats    map[string]any
}

func (m *mockDependencies) Submit(_ context.Context, in analysis.FormInput) (*render.View, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockDependencies) Probe(context.Context) (api.BackendHealth, error) {
	if m.probeErr != nil {
		return api.BackendHealth{}, m.probeErr
	}
	return api.BackendHealth{Status: "healthy", Latency: 12 * time.Millisecond}, nil
}

func (m *mockDependencies) InFlight() int64 { return m.inFlight }

func (m *mockDependencies) GetStats(context.Context) map[string]any { return m.stats }

func (m *mockDependencies) submitted() []analysis.FormInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]analysis.FormInput(nil), m.inputs...)
}

func sampleView() *render.View {
	resp, err := analysis.DecodeResponse([]byte(`{
		"growth_metrics": {"streak": {"current": 5, "longest": 12}, "platform_stats": {"codeforces": {"solved": 3}}},
		"analysis": {"skill_level": "<script>alert(1)</script>"},
		"tasks": [{"title": "Two pointers", "due_days": 4}]
	}`))
	if err != nil {
		panic(err)
	}
	return render.Normalize(resp)
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, render.MustNew(), logger.Nop()).Register(mux)
	return mux
}

func postForm(mux http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func parse(w *httptest.ResponseRecorder) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(w.Body)
	So(err, ShouldBeNil)
	return doc
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{view: sampleView(), stats: map[string]any{"started": true}}
		mux := newMux(deps)

		Convey("When requesting the form page", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then the empty form is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				doc := parse(w)
				So(doc.Find("#analyzeForm").Length(), ShouldEqual, 1)
				So(doc.Find("#errorSection").Length(), ShouldEqual, 0)
				So(doc.Find("#resultsSection").Length(), ShouldEqual, 0)
			})
		})

		Convey("When requesting an unknown path", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When requesting metrics", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then the Prometheus exposition is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "coach_web_")
			})
		})

		Convey("When requesting stats", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})
	})
}

func TestAnalyzeHandler_Submit(t *testing.T) {
	Convey("Given a successful analysis", t, func() {
		deps := &mockDependencies{view: sampleView()}
		mux := newMux(deps)

		Convey("When the form is posted", func() {
			w := postForm(mux, url.Values{"user_id": {"alice"}, "codeforces": {"tourist"}, "leetcode": {""}})

			Convey("Then the results page is rendered and not cached", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
				body := w.Body.String()
				So(body, ShouldNotContainSubstring, "<script>alert(1)</script>")
				So(body, ShouldContainSubstring, "&lt;script&gt;alert(1)&lt;/script&gt;")

				doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
				So(err, ShouldBeNil)
				So(doc.Find(`[data-metric="streak_current"] .metric-value`).Text(), ShouldEqual, "5")
				So(doc.Find(`[data-metric="streak_longest"] .metric-value`).Text(), ShouldEqual, "12")
				So(doc.Find("#tasksList .task-status").Text(), ShouldEqual, "4 days")
				val, _ := doc.Find("#userId").Attr("value")
				So(val, ShouldEqual, "alice")
			})

			Convey("Then the form values reach the service", func() {
				So(deps.submitted(), ShouldResemble, []analysis.FormInput{{UserID: "alice", Codeforces: "tourist"}})
			})
		})

		Convey("When the page is fetched with the wrong method", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyze", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(deps.submitted(), ShouldBeEmpty)
		})
	})

	Convey("Given submissions that fail", t, func() {
		cases := []struct {
			name    string
			err     error
			status  int
			message string
		}{
			{"missing user", analysis.ErrMissingUserID, http.StatusBadRequest, "Please enter a User ID"},
			{"missing handle", analysis.ErrMissingHandle, http.StatusBadRequest, "Please enter at least one platform handle"},
			{"in flight", service.ErrInFlight, http.StatusConflict, "An analysis is already running for this user"},
			{"busy", service.ErrBusy, http.StatusServiceUnavailable, "Too many analyses are running. Please try again shortly."},
			{"server detail", &backend.HTTPError{Status: 500, Detail: "<b>boom</b>"}, http.StatusBadGateway, "<b>boom</b>"},
			{"server bare", &backend.HTTPError{Status: 500}, http.StatusBadGateway, "Server error: 500"},
			{"failed", &backend.FailedError{}, http.StatusBadGateway, "Analysis failed"},
			{"timeout", backend.ErrTimeout, http.StatusGatewayTimeout, service.MsgTimeout},
			{"transport", backend.ErrTransport, http.StatusBadGateway, service.MsgUnavailable},
		}

		for _, tc := range cases {
			Convey("When the failure is "+tc.name, func() {
				mux := newMux(&mockDependencies{err: tc.err})
				w := postForm(mux, url.Values{"user_id": {"bob"}, "leetcode": {"bob"}})

				Convey("Then only the error banner is shown", func() {
					So(w.Code, ShouldEqual, tc.status)
					So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
					doc := parse(w)
					So(doc.Find("#errorMessage").Text(), ShouldEqual, tc.message)
					So(doc.Find("#resultsSection").Length(), ShouldEqual, 0)
					So(doc.Find("#errorMessage b").Length(), ShouldEqual, 0)
				})
			})
		}
	})
}

func TestAnalyzeHandler_API(t *testing.T) {
	Convey("Given the JSON endpoint", t, func() {
		deps := &mockDependencies{view: sampleView()}
		mux := newMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When a valid request is posted", func() {
			w := post(`{"user_id":"alice","handles":{"leetcode":"neal"}}`)

			Convey("Then the view and every fragment are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out struct {
					View      render.View       `json:"view"`
					Fragments map[string]string `json:"fragments"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out.View.Metrics[3].Value, ShouldEqual, "5")
				So(out.Fragments, ShouldHaveLength, len(render.Sections))
				So(out.Fragments["analysis"], ShouldContainSubstring, "&lt;script&gt;")
				So(deps.submitted(), ShouldResemble, []analysis.FormInput{{UserID: "alice", LeetCode: "neal"}})
			})
		})

		Convey("When the body is not JSON", func() {
			w := post(`user_id=alice`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
			So(deps.submitted(), ShouldBeEmpty)
		})

		Convey("When the analysis times out", func() {
			deps.err = backend.ErrTimeout
			w := post(`{"user_id":"alice","handles":{"codeforces":"x"}}`)

			Convey("Then a coded error is returned", func() {
				So(w.Code, ShouldEqual, http.StatusGatewayTimeout)
				var out map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out["code"], ShouldEqual, "timeout")
				So(out["message"], ShouldEqual, service.MsgTimeout)
			})
		})
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("Given a reachable analysis service", t, func() {
		mux := newMux(&mockDependencies{inFlight: 2})
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		Convey("Then the backend is reported up", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			var out map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
			So(out["status"], ShouldEqual, "ok")
			So(out["backend"], ShouldEqual, "up")
			So(out["in_flight"], ShouldEqual, float64(2))
			So(out["backend_latency_ms"], ShouldEqual, float64(12))
		})
	})

	Convey("Given an unreachable analysis service", t, func() {
		mux := newMux(&mockDependencies{probeErr: backend.ErrTransport})
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		Convey("Then the front end is still alive", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"backend":"down"`)
		})
	})
}
