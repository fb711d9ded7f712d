package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/gpolens/internal/application/analysis"
	appruns "github.com/bryanwahyu/gpolens/internal/application/runs"
	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	domain "github.com/bryanwahyu/gpolens/internal/domain/runs"
	"github.com/bryanwahyu/gpolens/internal/middleware"
)

const defaultMaxBody = 16 << 20

// Options configures the HTTP surface around the services.
type Options struct {
	APIKeys      map[string]string
	CORSOrigins  []string
	RateLimiter  *middleware.RateLimiter // nil disables rate limiting
	Checkers     map[string]middleware.HealthChecker
	MaxBodyBytes int64
	Logger       *zap.Logger
}

type Router struct {
	runsSvc *appruns.Service
	maxBody int64
	log     *zap.Logger
}

func NewRouter(runsSvc *appruns.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	r := &Router{runsSvc: runsSvc, maxBody: opts.MaxBodyBytes, log: opts.Logger}
	mux := chi.NewRouter()

	mux.Use(middleware.LoggingMiddleware(opts.Logger))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidTenant)
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Post("/analyses/stream", r.wrap(r.handleAnalyzeStream))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Get("/session", r.wrap(r.handleSession))
		rt.Delete("/session", r.wrap(r.handleClearSession))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
	RunID   string `json:"runId,omitempty"`
}

func newErrorBody(err error) errorBody {
	body := errorBody{Error: analysis.Kind(err), Message: analysis.UserMessage(err)}
	var pe *analysis.PhaseError
	if errors.As(err, &pe) {
		body.Phase = pe.Where()
	}
	return body
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrOracleCapacity):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrOracleFormat):
		return http.StatusBadGateway
	case errors.Is(err, analysis.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, analysis.ErrOracleTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		body := newErrorBody(err)
		if errors.Is(err, domain.ErrNotFound) {
			body = errorBody{Error: "not_found", Message: "not found"}
		}
		var re *runError
		if errors.As(err, &re) {
			body.RunID = re.runID
		}
		if status == http.StatusInternalServerError {
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		}
		writeJSON(w, status, body)
	}
}

// runError attaches the archived run id to a pipeline failure.
type runError struct {
	runID string
	err   error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// analyzeBody is the request of both analyze endpoints.
type analyzeBody struct {
	BaseGPO        string   `json:"baseGpo"`
	ComparisonGPOs []string `json:"comparisonGpos" validate:"required,min=1"`
	MaxBatchSize   int      `json:"maxBatchSize" validate:"omitempty,min=1,max=100"`
}

func (r *Router) decodeAnalyze(w http.ResponseWriter, req *http.Request) (analysis.Request, error) {
	var body analyzeBody
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, r.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return analysis.Request{}, fmt.Errorf("%w: request body exceeds %d bytes", analysis.ErrOracleCapacity, tooLarge.Limit)
		}
		return analysis.Request{}, fmt.Errorf("%w: invalid JSON: %v", analysis.ErrValidation, err)
	}
	if err := middleware.ValidateStruct(body); err != nil {
		return analysis.Request{}, fmt.Errorf("%w: %v", analysis.ErrValidation, err)
	}
	return analysis.Request{
		BaseGPO:        body.BaseGPO,
		ComparisonGPOs: body.ComparisonGPOs,
		MaxBatchSize:   body.MaxBatchSize,
	}, nil
}

type runResult struct {
	Run    *domain.Run        `json:"run"`
	Result *analysis.Response `json:"result,omitempty"`
}

// POST /v1/{tenant}/analyses
// Body: {"baseGpo": "...", "comparisonGpos": ["...", "..."], "maxBatchSize": 10}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	areq, err := r.decodeAnalyze(w, req)
	if err != nil {
		return err
	}

	run, resp, err := r.runsSvc.Execute(req.Context(), tenant, areq, nil)
	if err != nil {
		return &runError{runID: string(run.ID), err: err}
	}
	return writeJSON(w, http.StatusOK, runResult{Run: run, Result: resp})
}

// POST /v1/{tenant}/analyses/stream
// Same body as /analyses; answers with text/event-stream: progress and partial events,
// then one done or failed event.
func (r *Router) handleAnalyzeStream(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	areq, err := r.decodeAnalyze(w, req)
	if err != nil {
		return err
	}

	// streams outlive the server's write timeout
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(noDeadline)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sse := &sseWriter{w: w, rc: rc}
	run, resp, err := r.runsSvc.Execute(req.Context(), tenant, areq, func(e appanalysis.Event) {
		switch e.Type {
		case appanalysis.EventProgress:
			sse.send("progress", e.Progress)
		case appanalysis.EventPartial:
			sse.send("partial", e.Partial)
		}
	})
	if err != nil {
		body := newErrorBody(err)
		body.RunID = string(run.ID)
		sse.send("failed", body)
		return nil
	}
	sse.send("done", runResult{Run: run, Result: resp})
	return nil
}

// GET /v1/{tenant}/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.runsSvc.List(req.Context(), tenant, middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return fmt.Errorf("%w: %v", analysis.ErrValidation, err)
	}

	run, err := r.runsSvc.Get(req.Context(), tenant, domain.RunID(id))
	if err != nil {
		return err
	}
	out := runResult{Run: run}
	if run.Status == domain.StatusSucceeded {
		if out.Result, err = r.runsSvc.Result(req.Context(), tenant, run.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return writeJSON(w, http.StatusOK, out)
}

// GET /v1/{tenant}/session
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) error {
	resp, err := r.runsSvc.Session(req.Context(), chi.URLParam(req, "tenant"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

// DELETE /v1/{tenant}/session
func (r *Router) handleClearSession(w http.ResponseWriter, req *http.Request) error {
	if err := r.runsSvc.ClearSession(req.Context(), chi.URLParam(req, "tenant")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
