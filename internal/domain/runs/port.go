package runs

import (
	"context"
	"errors"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// ErrNotFound is returned when a run or cached session does not exist.
var ErrNotFound = errors.New("not found")

// Repository port for persisting and querying runs
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Get(ctx context.Context, tenant string, id RunID) (*Run, error)
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Run, error)
}

// ArtifactStore port for generated files
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// SessionCache keeps the latest response per tenant so a client can resume it.
type SessionCache interface {
	Save(ctx context.Context, tenant string, resp *analysis.Response) error
	Load(ctx context.Context, tenant string) (*analysis.Response, error)
	Clear(ctx context.Context, tenant string) error
}
