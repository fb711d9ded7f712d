package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// Envelope is the top-level shape of a batch response.
type Envelope struct {
	Analysis *analysis.Analysis `json:"analysis"`
}

// DecodeAnalysis parses a batch response. Any deviation from the schema is an
// analysis.ErrOracleFormat.
func DecodeAnalysis(text string) (*analysis.Analysis, error) {
	text = strings.TrimSpace(analysis.StripCodeFence(text))
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", analysis.ErrOracleFormat)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrOracleFormat, err)
	}
	if env.Analysis == nil {
		return nil, fmt.Errorf("%w: missing analysis object", analysis.ErrOracleFormat)
	}
	if err := analysis.Normalize(env.Analysis); err != nil {
		return nil, err
	}
	return env.Analysis, nil
}
