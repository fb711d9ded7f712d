package mysql

import (
	"strings"

	domain "github.com/bryanwahyu/gpolens/internal/domain/runs"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// resultOrEmpty keeps the JSON column valid for runs without a result.
func resultOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var r domain.Run
	if err := row.Scan(
		&r.ID, &r.TenantID, &r.Mode, &r.Status, &r.Documents, &r.Batches,
		&r.Stats.TotalGPOs, &r.Stats.HighSeverityConflicts, &r.Stats.MediumSeverityConflicts,
		&r.Stats.Overlaps, &r.Stats.ConsolidationOpportunities,
		&r.Summary, &r.ResultJSON, &r.ScriptURL, &r.ReportURL,
		&r.ErrorKind, &r.ErrorPhase, &r.ErrorMsg, &r.DurationMS, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if r.Status != domain.StatusSucceeded {
		r.ResultJSON = ""
	}
	return &r, nil
}
