package analysis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/gpolens/internal/domain/analysis"
	"github.com/bryanwahyu/gpolens/internal/metrics"
)

// Service runs the batched analysis pipeline: plan, analyze each batch sequentially while
// streaming its partial result, aggregate, summarize, then synthesize the script.
// Service holds no per-run state and may be shared between goroutines.
type Service struct {
	Oracle        domain.Oracle
	Limits        domain.Limits
	FindingSample int
	Logger        *zap.Logger
}

// NewService builds a Service with default limits.
func NewService(oracle domain.Oracle, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Oracle:        oracle,
		Limits:        domain.DefaultLimits(),
		FindingSample: domain.DefaultFindingSample,
		Logger:        logger,
	}
}

// Run executes one pipeline run. emit (may be nil) receives a partial event after every
// batch, in batch order, and progress events after every unit of work, all before Run
// returns. On failure Run returns a *domain.PhaseError and emits nothing further.
func (s *Service) Run(ctx context.Context, req domain.Request, emit Emitter) (*domain.Response, error) {
	mode := req.Mode()
	r := &run{
		svc:   s,
		ctx:   ctx,
		emit:  emit,
		mode:  mode,
		phase: domain.PhaseIdle,
		log:   s.logger().With(zap.String("run_id", RunIDFrom(ctx)), zap.String("mode", string(mode))),
		start: time.Now(),
	}
	metrics.RunsStarted.WithLabelValues(string(mode)).Inc()

	resp, err := r.execute(req)
	status := "succeeded"
	switch {
	case IsValidation(err):
		status = "failed"
		r.log.Info("analysis request rejected", zap.Error(err))
	case err != nil:
		status = "failed"
		r.log.Warn("analysis run failed", zap.String("phase", string(r.failedIn)), zap.Error(err))
	default:
		r.log.Info("analysis run finished",
			zap.Int("batches", r.batches),
			zap.Int("findings", len(resp.Analysis.Findings)),
			zap.Duration("took", time.Since(r.start)),
		)
	}
	metrics.RunsCompleted.WithLabelValues(string(mode), status, domain.Kind(err)).Inc()
	metrics.RunDuration.WithLabelValues(string(mode)).Observe(time.Since(r.start).Seconds())
	return resp, err
}

// Stream runs the pipeline on its own goroutine and relays events over the returned
// channel: progress and partial events, then one done or failed event. The channel is
// closed afterwards. Callers must drain it or cancel ctx.
func (s *Service) Stream(ctx context.Context, req domain.Request) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		send := func(e Event) {
			select {
			case ch <- e:
			case <-ctx.Done():
			}
		}
		resp, err := s.Run(ctx, req, send)
		if err != nil {
			send(Event{Type: EventFailed, Err: err})
			return
		}
		send(Event{Type: EventDone, Response: resp})
	}()
	return ch
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) sampleSize() int {
	if s.FindingSample > 0 {
		return s.FindingSample
	}
	return domain.DefaultFindingSample
}

// run is the state of one pipeline invocation.
type run struct {
	svc      *Service
	ctx      context.Context
	emit     Emitter
	mode     domain.Mode
	log      *zap.Logger
	start    time.Time
	phase    domain.Phase
	failedIn domain.Phase
	current  int
	batches  int
}

func (r *run) execute(req domain.Request) (*domain.Response, error) {
	r.enter(domain.PhasePlanning)
	batches, err := domain.Plan(req, r.svc.Limits)
	if err != nil {
		return nil, r.fail(&domain.PhaseError{Phase: domain.PhasePlanning, Err: err})
	}
	r.batches = len(batches)
	wasBatched := len(batches) > 1
	metrics.BatchesPerRun.Observe(float64(len(batches)))
	r.log.Info("analysis run planned",
		zap.Int("documents", req.DocumentCount()),
		zap.Int("batches", len(batches)),
	)

	results := make([]domain.Analysis, 0, len(batches))
	for _, b := range batches {
		r.enter(domain.PhaseExecuting)
		res, err := r.analyzeBatch(b, wasBatched)
		if err != nil {
			return nil, r.fail(&domain.PhaseError{Phase: domain.PhaseExecuting, Batch: b.Index, Batches: b.Total, Err: err})
		}
		r.send(Event{Type: EventPartial, Partial: &Partial{Batch: b.Index, Total: b.Total, Analysis: *res}})
		r.progress(domain.PhaseExecuting, b.Index, b.Total)
		results = append(results, *res)
	}

	var final domain.Analysis
	if !wasBatched {
		// a single batch already carries a full summary
		final = results[0]
	} else {
		r.enter(domain.PhaseAggregating)
		final = domain.Aggregate(results)

		r.enter(domain.PhaseSummarizing)
		r.progress(domain.PhaseSummarizing, len(batches), len(batches))
		summary, err := r.summarize(final)
		if err != nil {
			return nil, r.fail(&domain.PhaseError{Phase: domain.PhaseSummarizing, Err: err})
		}
		final.Summary = domain.EnsureCaveat(summary, r.mode, wasBatched)
	}

	r.enter(domain.PhaseSynthesizing)
	r.progress(domain.PhaseSynthesizing, len(batches), len(batches))
	script, err := r.synthesize(final.GPONames())
	if err != nil {
		return nil, r.fail(&domain.PhaseError{Phase: domain.PhaseSynthesizing, Err: err})
	}

	r.enter(domain.PhaseDone)
	return &domain.Response{Analysis: final, Script: script}, nil
}

func (r *run) analyzeBatch(b domain.Batch, merged bool) (*domain.Analysis, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	var res *domain.Analysis
	err := r.call("analyze_batch", func() (err error) {
		res, err = r.svc.Oracle.AnalyzeBatch(r.ctx, domain.BatchRequest{Batch: b, Mode: r.mode, Merged: merged})
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := domain.Normalize(res); err != nil {
		return nil, err
	}
	r.log.Debug("batch analyzed",
		zap.Int("batch", b.Index),
		zap.Int("of", b.Total),
		zap.Int("findings", len(res.Findings)),
	)
	return res, nil
}

func (r *run) summarize(agg domain.Analysis) (string, error) {
	if err := r.ctx.Err(); err != nil {
		return "", err
	}
	var summary string
	err := r.call("summarize", func() (err error) {
		summary, err = r.svc.Oracle.Summarize(r.ctx, domain.SummaryRequest{
			Stats:      agg.Stats,
			Sample:     domain.Sample(agg.Findings, r.svc.sampleSize()),
			Mode:       r.mode,
			WasBatched: true,
		})
		return err
	})
	return summary, err
}

func (r *run) synthesize(names []string) (string, error) {
	if err := r.ctx.Err(); err != nil {
		return "", err
	}
	var script string
	err := r.call("synthesize_script", func() (err error) {
		script, err = r.svc.Oracle.SynthesizeScript(r.ctx, domain.ScriptRequest{Mode: r.mode, GPONames: names})
		return err
	})
	if err != nil {
		return "", err
	}
	return domain.StripCodeFence(script), nil
}

// call times an oracle call and classifies its error.
func (r *run) call(op string, fn func() error) error {
	start := time.Now()
	err := domain.Classify(fn())
	metrics.OracleLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = domain.Kind(err)
	}
	metrics.OracleCalls.WithLabelValues(op, outcome).Inc()
	return err
}

func (r *run) enter(p domain.Phase) {
	if !domain.CanTransition(r.phase, p) {
		r.log.DPanic("invalid pipeline transition", zap.String("from", string(r.phase)), zap.String("to", string(p)))
	}
	r.log.Debug("pipeline phase", zap.String("from", string(r.phase)), zap.String("to", string(p)))
	r.phase = p
}

func (r *run) fail(err *domain.PhaseError) error {
	r.failedIn = err.Phase
	r.enter(domain.PhaseFailed)
	return err
}

func (r *run) progress(stage domain.Phase, current, total int) {
	if current < r.current {
		current = r.current
	}
	r.current = current
	r.send(Event{Type: EventProgress, Progress: &domain.Progress{Stage: stage, Current: current, Total: total}})
}

func (r *run) send(e Event) {
	if r.emit == nil || r.phase.Terminal() {
		return
	}
	r.emit(e)
}

type runIDKey struct{}

// ContextWithRunID tags ctx so pipeline logs carry the run id.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id stored by ContextWithRunID, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// IsValidation reports whether err rejected the request before any oracle call.
func IsValidation(err error) bool { return errors.Is(err, domain.ErrValidation) }
