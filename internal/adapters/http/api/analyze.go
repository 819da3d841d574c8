package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/domain/analysis"
	"github.com/okian/coach/internal/render"
	"github.com/okian/coach/pkg/logger"
)

const maxBodyBytes = 64 << 10

// AnalyzeHandler serves the form page and both submission endpoints.
type AnalyzeHandler struct {
	deps     Dependencies
	renderer *render.Renderer
	log      logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies, renderer *render.Renderer, log logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, renderer: renderer, log: log.Named("api")}
}

// HandlePage handles GET / with an empty form.
func (h *AnalyzeHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}
	h.writePage(w, r, http.StatusOK, render.PageData{})
}

// HandleSubmit handles POST /analyze from the HTML form and answers with
// the full page: results on success, the error banner otherwise.
func (h *AnalyzeHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.log.Warn(r.Context(), "unreadable form", logger.Error(WrapKind(op, ErrBadRequest, err)))
		h.writePage(w, r, http.StatusBadRequest, render.PageData{Error: http.StatusText(http.StatusBadRequest)})
		return
	}
	in := analysis.FormInput{
		UserID:     r.PostFormValue("user_id"),
		Codeforces: r.PostFormValue("codeforces"),
		LeetCode:   r.PostFormValue("leetcode"),
	}

	view, err := h.deps.Submit(r.Context(), in)
	if err != nil {
		h.logFailure(r, op, err)
		h.writePage(w, r, statusFor(err), render.PageData{Input: in, Error: service.UserMessage(err)})
		return
	}
	h.writePage(w, r, http.StatusOK, render.PageData{Input: in, View: view})
}

type apiRequest struct {
	UserID  string            `json:"user_id"`
	Handles map[string]string `json:"handles"`
}

type apiResponse struct {
	View      *render.View      `json:"view"`
	Fragments map[string]string `json:"fragments"`
}

// HandleAPI handles POST /api/analyze. The fragments are the rendered
// sections keyed by the ids a page script swaps them into.
func (h *AnalyzeHandler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	var req apiRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.log.Debug(r.Context(), "bad analyze body", logger.Error(WrapKind(op, ErrBadRequest, err)))
		writeError(w, http.StatusBadRequest, "bad_request", "request body must be a JSON object")
		return
	}
	in := analysis.FormInput{
		UserID:     req.UserID,
		Codeforces: req.Handles[analysis.PlatformCodeforces],
		LeetCode:   req.Handles[analysis.PlatformLeetCode],
	}

	view, err := h.deps.Submit(r.Context(), in)
	if err != nil {
		h.logFailure(r, op, err)
		writeError(w, statusFor(err), service.Outcome(err), service.UserMessage(err))
		return
	}

	fragments, err := h.renderer.Fragments(view)
	if err != nil {
		h.log.Error(r.Context(), "render fragments", logger.Error(WrapKind(op, ErrRender, err)))
		writeError(w, http.StatusInternalServerError, "render_error", "")
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{View: view, Fragments: fragments})
}

// writePage renders before writing the header so a template failure turns
// into a clean 500.
func (h *AnalyzeHandler) writePage(w http.ResponseWriter, r *http.Request, status int, data render.PageData) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, data); err != nil {
		h.log.Error(r.Context(), "render page", logger.Error(WrapKind("api.page", ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *AnalyzeHandler) logFailure(r *http.Request, op string, err error) {
	fields := []logger.Field{logger.String("op", op), logger.String("outcome", service.Outcome(err)), logger.Error(err)}
	if statusFor(err) >= http.StatusInternalServerError {
		h.log.Warn(r.Context(), "analysis failed", fields...)
		return
	}
	h.log.Debug(r.Context(), "analysis rejected", fields...)
}
