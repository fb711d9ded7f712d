package runs

import (
	"time"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// RunID identifier type
type RunID string

// Status enum
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is the archived record of one pipeline invocation.
type Run struct {
	ID         RunID          `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Mode       analysis.Mode  `json:"mode"`
	Status     Status         `json:"status"`
	Documents  int            `json:"documents"`
	Batches    int            `json:"batches"`
	Stats      analysis.Stats `json:"stats"`
	Summary    string         `json:"summary,omitempty"`
	ResultJSON string         `json:"-"` // serialized analysis.Response
	ScriptURL  string         `json:"script_url,omitempty"`
	ReportURL  string         `json:"report_url,omitempty"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	ErrorPhase string         `json:"error_phase,omitempty"`
	ErrorMsg   string         `json:"error_message,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	CreatedAt  time.Time      `json:"created_at"`
}
