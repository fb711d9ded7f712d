package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/gpolens/internal/application"
	appanalysis "github.com/bryanwahyu/gpolens/internal/application/analysis"
	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	domain "github.com/bryanwahyu/gpolens/internal/domain/runs"
	"github.com/bryanwahyu/gpolens/internal/metrics"
)

const archiveTimeout = 30 * time.Second

// Pipeline runs one analysis. *appanalysis.Service implements it.
type Pipeline interface {
	Run(ctx context.Context, req analysis.Request, emit appanalysis.Emitter) (*analysis.Response, error)
}

// Service executes pipeline runs and archives their outcome.
// Repo, Artifacts and Sessions are optional; a nil port is skipped.
type Service struct {
	Pipeline  Pipeline
	Repo      domain.Repository
	Artifacts domain.ArtifactStore
	Sessions  domain.SessionCache
	Clock     application.Clock
	Logger    *zap.Logger
}

// Execute runs the pipeline for tenant and records the run, whether it succeeded or not.
// The returned error is the pipeline's; archiving problems are only logged.
func (s *Service) Execute(ctx context.Context, tenant string, req analysis.Request, emit appanalysis.Emitter) (*domain.Run, *analysis.Response, error) {
	id := uuid.New().String()
	ctx = appanalysis.ContextWithRunID(ctx, id)
	start := s.now()

	run := &domain.Run{
		ID:        domain.RunID(id),
		TenantID:  tenant,
		Mode:      req.Mode(),
		Documents: req.DocumentCount(),
		CreatedAt: start,
	}

	// count batches from the partial stream, then pass every event on
	counting := func(e appanalysis.Event) {
		if e.Type == appanalysis.EventPartial && e.Partial != nil {
			run.Batches = e.Partial.Total
		}
		if emit != nil {
			emit(e)
		}
	}

	resp, err := s.Pipeline.Run(ctx, req, counting)
	run.DurationMS = s.now().Sub(start).Milliseconds()

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	if err != nil {
		run.Status = domain.StatusFailed
		run.ErrorKind = analysis.Kind(err)
		run.ErrorMsg = analysis.UserMessage(err)
		var pe *analysis.PhaseError
		if errors.As(err, &pe) {
			run.ErrorPhase = pe.Where()
		}
		s.save(actx, run)
		return run, nil, err
	}

	run.Status = domain.StatusSucceeded
	run.Stats = resp.Analysis.Stats
	run.Summary = resp.Analysis.Summary
	s.archive(actx, run, resp)
	return run, resp, nil
}

func (s *Service) archive(ctx context.Context, run *domain.Run, resp *analysis.Response) {
	log := s.logger().With(zap.String("run_id", string(run.ID)), zap.String("tenant", run.TenantID))

	report, err := json.Marshal(resp)
	if err != nil {
		// Response holds only strings, ints and slices
		log.Error("marshal response", zap.Error(err))
		metrics.ArchiveFailures.WithLabelValues("marshal").Inc()
	}
	run.ResultJSON = string(report)

	if s.Artifacts != nil {
		prefix := fmt.Sprintf("%s/%s", run.TenantID, run.ID)
		if url, err := s.Artifacts.Put(ctx, prefix+"/script.ps1", "text/plain; charset=utf-8", []byte(resp.Script)); err != nil {
			log.Warn("upload script", zap.Error(err))
			metrics.ArchiveFailures.WithLabelValues("artifacts").Inc()
		} else {
			run.ScriptURL = url
		}
		if url, err := s.Artifacts.Put(ctx, prefix+"/report.json", "application/json", report); err != nil {
			log.Warn("upload report", zap.Error(err))
			metrics.ArchiveFailures.WithLabelValues("artifacts").Inc()
		} else {
			run.ReportURL = url
		}
	}

	if s.Sessions != nil {
		if err := s.Sessions.Save(ctx, run.TenantID, resp); err != nil {
			log.Warn("cache session", zap.Error(err))
			metrics.ArchiveFailures.WithLabelValues("session").Inc()
		}
	}

	s.save(ctx, run)
}

func (s *Service) save(ctx context.Context, run *domain.Run) {
	if s.Repo == nil {
		return
	}
	if err := s.Repo.Save(ctx, run); err != nil {
		s.logger().Warn("save run", zap.String("run_id", string(run.ID)), zap.Error(err))
		metrics.ArchiveFailures.WithLabelValues("repository").Inc()
	}
}

// Get returns one archived run
func (s *Service) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	if s.Repo == nil {
		return nil, domain.ErrNotFound
	}
	return s.Repo.Get(ctx, tenant, id)
}

// Result decodes the archived response of a succeeded run.
func (s *Service) Result(ctx context.Context, tenant string, id domain.RunID) (*analysis.Response, error) {
	run, err := s.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.StatusSucceeded || run.ResultJSON == "" {
		return nil, domain.ErrNotFound
	}
	var resp analysis.Response
	if err := json.Unmarshal([]byte(run.ResultJSON), &resp); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &resp, nil
}

// List returns a page of runs, newest first
func (s *Service) List(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Run, error) {
	if s.Repo == nil {
		return []*domain.Run{}, nil
	}
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// Session returns the tenant's cached response
func (s *Service) Session(ctx context.Context, tenant string) (*analysis.Response, error) {
	if s.Sessions == nil {
		return nil, domain.ErrNotFound
	}
	return s.Sessions.Load(ctx, tenant)
}

// ClearSession drops the tenant's cached response so the user can start over.
func (s *Service) ClearSession(ctx context.Context, tenant string) error {
	if s.Sessions == nil {
		return nil
	}
	return s.Sessions.Clear(ctx, tenant)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
