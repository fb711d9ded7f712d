package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/gpolens/internal/domain/runs"
)

const runColumns = `id, tenant_id, mode, status, documents, batches,
  total_gpos, high_conflicts, medium_conflicts, overlaps, consolidation,
  summary, result_json, script_url, report_url,
  error_kind, error_phase, error_message, duration_ms, created_at`

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts or updates a run record
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO gpo_analysis_runs
  (` + runColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  status=VALUES(status), batches=VALUES(batches),
  total_gpos=VALUES(total_gpos), high_conflicts=VALUES(high_conflicts),
  medium_conflicts=VALUES(medium_conflicts), overlaps=VALUES(overlaps),
  consolidation=VALUES(consolidation), summary=VALUES(summary), result_json=VALUES(result_json),
  script_url=VALUES(script_url), report_url=VALUES(report_url),
  error_kind=VALUES(error_kind), error_phase=VALUES(error_phase),
  error_message=VALUES(error_message), duration_ms=VALUES(duration_ms);
`
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, stringOrDash(run.TenantID), string(run.Mode), stringOrDash(string(run.Status)), run.Documents, run.Batches,
		run.Stats.TotalGPOs, run.Stats.HighSeverityConflicts, run.Stats.MediumSeverityConflicts,
		run.Stats.Overlaps, run.Stats.ConsolidationOpportunities,
		run.Summary, resultOrEmpty(run.ResultJSON), run.ScriptURL, run.ReportURL,
		run.ErrorKind, run.ErrorPhase, run.ErrorMsg, run.DurationMS, createdAt,
	)
	return err
}

// Get by ID + Tenant
func (r *RunRepository) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	const q = `SELECT ` + runColumns + `
FROM gpo_analysis_runs
WHERE tenant_id=? AND id=?
LIMIT 1;`
	run, err := scanRun(r.db.QueryRowContext(ctx, q, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return run, err
}

// Paginate returns a page of runs ordered by created_at desc
func (r *RunRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Run, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `SELECT ` + runColumns + `
FROM gpo_analysis_runs
WHERE tenant_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Run, 0, pageSize)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
