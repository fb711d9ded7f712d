package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds each dependency check of the readiness probe.
const checkTimeout = 2 * time.Second

// HealthChecker is a dependency the API needs before it can archive runs.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function, e.g. a cache or bucket Ping.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings the run archive database.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Readiness is the body of /health/ready.
type Readiness struct {
	Status       string                      `json:"status"` // ready | not_ready
	CheckedAt    time.Time                   `json:"checkedAt"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

type DependencyStatus struct {
	Up        bool   `json:"up"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// ReadinessHandler pings every dependency concurrently and answers 503 when any is down.
// With no dependencies configured the service is always ready.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := Readiness{
			Status:       "ready",
			CheckedAt:    time.Now().UTC(),
			Dependencies: make(map[string]DependencyStatus, len(checkers)),
		}

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for name, checker := range checkers {
			wg.Add(1)
			go func(name string, checker HealthChecker) {
				defer wg.Done()
				st := probe(r.Context(), checker)
				mu.Lock()
				report.Dependencies[name] = st
				mu.Unlock()
			}(name, checker)
		}
		wg.Wait()

		code := http.StatusOK
		for _, st := range report.Dependencies {
			if !st.Up {
				report.Status = "not_ready"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}

func probe(ctx context.Context, c HealthChecker) DependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	start := time.Now()
	err := c.Check(ctx)
	st := DependencyStatus{Up: err == nil, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// LivenessHandler answers as long as the process serves HTTP.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
