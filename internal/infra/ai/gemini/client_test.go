package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"too large", genai.APIError{Code: 413, Status: "INVALID_ARGUMENT", Message: "request too large"}, analysis.ErrOracleCapacity},
		{"token limit", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "The input token count exceeds the maximum"}, analysis.ErrOracleCapacity},
		{"quota", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "You exceeded your current quota"}, analysis.ErrQuotaExceeded},
		{"rate", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Too many requests"}, analysis.ErrOracleTransient},
		{"unavailable", genai.APIError{Code: 503, Status: "UNAVAILABLE", Message: "overloaded"}, analysis.ErrOracleTransient},
		{"wrapped", fmt.Errorf("call: %w", genai.APIError{Code: 413}), analysis.ErrOracleCapacity},
		{"network", errors.New("connection reset by peer"), analysis.ErrOracleTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tc.err), tc.want)
		})
	}
}

func TestClassifyKeepsCancellation(t *testing.T) {
	err := classify(fmt.Errorf("do: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, analysis.ErrOracleTransient)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "", 0)
	assert.Error(t, err)
}

func TestAnalyzeBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := `{"analysis":{"summary":"ok","stats":{"totalGpos":2},"findings":[],"gpoDetails":[]}}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]string{{"text": body}}},
				"finishReason": "STOP",
			}},
		})
	}))
	defer srv.Close()

	c, err := NewClientWithConfig(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	}, "gemini-test", 512)
	require.NoError(t, err)

	res, err := c.AnalyzeBatch(context.Background(), analysis.BatchRequest{
		Batch: analysis.Batch{Index: 1, Total: 1, GPOs: []string{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Summary)
	assert.Equal(t, 2, res.Stats.TotalGPOs)
}
