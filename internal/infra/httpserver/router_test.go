package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appanalysis "github.com/bryanwahyu/gpolens/internal/application/analysis"
	appruns "github.com/bryanwahyu/gpolens/internal/application/runs"
	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	domain "github.com/bryanwahyu/gpolens/internal/domain/runs"
	"github.com/bryanwahyu/gpolens/internal/infra/cache"
	"github.com/bryanwahyu/gpolens/internal/middleware"
)

type fakeOracle struct {
	batchErr error
}

func (o *fakeOracle) AnalyzeBatch(_ context.Context, req analysis.BatchRequest) (*analysis.Analysis, error) {
	if o.batchErr != nil {
		return nil, o.batchErr
	}
	a := &analysis.Analysis{
		Summary: fmt.Sprintf("batch %d", req.Batch.Index),
		Stats:   analysis.Stats{TotalGPOs: len(req.Batch.Documents()), Overlaps: 1},
	}
	for _, d := range req.Batch.Documents() {
		a.GPODetails = append(a.GPODetails, analysis.EntityDetails{Name: d})
	}
	return a, nil
}

func (o *fakeOracle) Summarize(context.Context, analysis.SummaryRequest) (string, error) {
	return "Overall the GPOs overlap.", nil
}

func (o *fakeOracle) SynthesizeScript(context.Context, analysis.ScriptRequest) (string, error) {
	return "```powershell\nGet-GPO -All\n```", nil
}

type memRepo struct {
	mu   sync.Mutex
	runs []*domain.Run
}

func (r *memRepo) Save(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs = append(r.runs, &cp)
	return nil
}

func (r *memRepo) Get(_ context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.ID == id && run.TenantID == tenant {
			return run, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) Paginate(_ context.Context, tenant string, _, _ int) ([]*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Run{}
	for _, run := range r.runs {
		if run.TenantID == tenant {
			out = append(out, run)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, oracle analysis.Oracle, keys map[string]string) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := zaptest.NewLogger(t)
	pipeline := appanalysis.NewService(oracle, logger)
	pipeline.Limits.MaxBatchSize = 2

	sessions := cache.NewSessionCache(rdb, time.Hour)
	svc := &appruns.Service{
		Pipeline: pipeline,
		Repo:     &memRepo{},
		Sessions: sessions,
		Logger:   logger,
	}
	h := NewRouter(svc, Options{
		APIKeys:  keys,
		Checkers: map[string]middleware.HealthChecker{"redis": middleware.CheckFunc(sessions.Ping)},
		Logger:   logger,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAnalyzeAndFetch(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{}, nil)

	resp := post(t, srv.URL+"/v1/acme/analyses", `{"comparisonGpos":["A","B","C"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Run    domain.Run        `json:"run"`
		Result analysis.Response `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, domain.StatusSucceeded, out.Run.Status)
	assert.Equal(t, 2, out.Run.Batches)
	assert.Equal(t, "Get-GPO -All", out.Result.Script)
	assert.Contains(t, out.Result.Analysis.Summary, analysis.CrossBatchCaveat)
	assert.Equal(t, 3, out.Result.Analysis.Stats.TotalGPOs)

	get, err := http.Get(srv.URL + "/v1/acme/analyses/" + string(out.Run.ID))
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	var fetched struct {
		Run    domain.Run         `json:"run"`
		Result *analysis.Response `json:"result"`
	}
	require.NoError(t, json.NewDecoder(get.Body).Decode(&fetched))
	require.NotNil(t, fetched.Result)
	assert.Equal(t, "Get-GPO -All", fetched.Result.Script)

	list, err := http.Get(srv.URL + "/v1/acme/analyses?page=1&page_size=5")
	require.NoError(t, err)
	defer list.Body.Close()
	var runs []domain.Run
	require.NoError(t, json.NewDecoder(list.Body).Decode(&runs))
	assert.Len(t, runs, 1)

	sess, err := http.Get(srv.URL + "/v1/acme/session")
	require.NoError(t, err)
	defer sess.Body.Close()
	assert.Equal(t, http.StatusOK, sess.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/acme/session", nil)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	gone, err := http.Get(srv.URL + "/v1/acme/session")
	require.NoError(t, err)
	gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestAnalyzeErrors(t *testing.T) {
	cases := []struct {
		name   string
		oracle analysis.Oracle
		body   string
		status int
		kind   string
		phase  string
	}{
		{"single report", &fakeOracle{}, `{"comparisonGpos":["A"]}`, http.StatusBadRequest, "validation", "planning"},
		{"blank report", &fakeOracle{}, `{"comparisonGpos":["A","  "]}`, http.StatusBadRequest, "validation", "planning"},
		{"missing list", &fakeOracle{}, `{"baseGpo":"A"}`, http.StatusBadRequest, "validation", ""},
		{"unknown field", &fakeOracle{}, `{"comparisonGpos":["A","B"],"extra":1}`, http.StatusBadRequest, "validation", ""},
		{"capacity", &fakeOracle{batchErr: analysis.ErrOracleCapacity}, `{"comparisonGpos":["A","B"]}`, http.StatusRequestEntityTooLarge, "oracle_capacity", "batch 1 of 1"},
		{"format", &fakeOracle{batchErr: analysis.ErrOracleFormat}, `{"comparisonGpos":["A","B"]}`, http.StatusBadGateway, "oracle_format", "batch 1 of 1"},
		{"quota", &fakeOracle{batchErr: analysis.ErrQuotaExceeded}, `{"comparisonGpos":["A","B"]}`, http.StatusTooManyRequests, "oracle_quota", "batch 1 of 1"},
		{"transient", &fakeOracle{batchErr: fmt.Errorf("connection reset")}, `{"comparisonGpos":["A","B"]}`, http.StatusServiceUnavailable, "oracle_transient", "batch 1 of 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.oracle, nil)
			resp := post(t, srv.URL+"/v1/acme/analyses", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.kind, body.Error)
			assert.Equal(t, tc.phase, body.Phase)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestAnalyzeStream(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{}, nil)

	resp := post(t, srv.URL+"/v1/acme/analyses/stream", `{"baseGpo":"BASE","comparisonGpos":["A","B","C"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []string
	var last string
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			events = append(events, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			last = strings.TrimPrefix(line, "data: ")
		}
	}
	require.NoError(t, sc.Err())

	assert.Equal(t, []string{"partial", "progress", "partial", "progress", "progress", "progress", "done"}, events)
	var done struct {
		Run    domain.Run        `json:"run"`
		Result analysis.Response `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(last), &done))
	assert.Equal(t, analysis.ModeOneToAll, done.Run.Mode)
	assert.NotContains(t, done.Result.Analysis.Summary, analysis.CrossBatchCaveat)
}

func TestAnalyzeStreamFailure(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{batchErr: analysis.ErrOracleFormat}, nil)

	resp := post(t, srv.URL+"/v1/acme/analyses/stream", `{"comparisonGpos":["A","B"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "event: failed", lines[0])
	var body errorBody
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &body))
	assert.Equal(t, "oracle_format", body.Error)
	assert.NotEmpty(t, body.RunID)
}

func TestAuthAndHealth(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{}, map[string]string{"acme": "k-acme"})

	resp, err := http.Get(srv.URL + "/v1/acme/analyses")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/globex/analyses", nil)
	req.Header.Set("Authorization", "Bearer k-acme")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestGetRejectsMalformedID(t *testing.T) {
	srv := newTestServer(t, &fakeOracle{}, nil)

	resp, err := http.Get(srv.URL + "/v1/acme/analyses/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/v1/acme/analyses/6f1c1b8e-8d1f-4b8a-9d43-0c7c2b0a1e11")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
