package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// Oracle limits the request rate to a wrapped analysis.Oracle and bounds every call
// with a timeout. It is safe for concurrent use; all runs of a process share its limiter.
type Oracle struct {
	next    analysis.Oracle
	limiter *rate.Limiter
	timeout time.Duration
}

// New wraps next. perMinute <= 0 disables rate limiting and timeout <= 0 disables the
// per-call timeout.
func New(next analysis.Oracle, perMinute int, timeout time.Duration) *Oracle {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &Oracle{next: next, limiter: rate.NewLimiter(limit, 1), timeout: timeout}
}

func (o *Oracle) AnalyzeBatch(ctx context.Context, req analysis.BatchRequest) (*analysis.Analysis, error) {
	var out *analysis.Analysis
	err := o.do(ctx, func(ctx context.Context) (err error) {
		out, err = o.next.AnalyzeBatch(ctx, req)
		return err
	})
	return out, err
}

func (o *Oracle) Summarize(ctx context.Context, req analysis.SummaryRequest) (string, error) {
	var out string
	err := o.do(ctx, func(ctx context.Context) (err error) {
		out, err = o.next.Summarize(ctx, req)
		return err
	})
	return out, err
}

func (o *Oracle) SynthesizeScript(ctx context.Context, req analysis.ScriptRequest) (string, error) {
	var out string
	err := o.do(ctx, func(ctx context.Context) (err error) {
		out, err = o.next.SynthesizeScript(ctx, req)
		return err
	})
	return out, err
}

func (o *Oracle) do(ctx context.Context, call func(context.Context) error) error {
	if err := o.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// the wait would outlast ctx's deadline
		return fmt.Errorf("%w: rate limited: %v", analysis.ErrOracleTransient, err)
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	err := call(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: oracle call timed out after %s", analysis.ErrOracleTransient, o.timeout)
	}
	return err
}
