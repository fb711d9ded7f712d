package analysis

import "context"

// BatchRequest is one oracle call over a batch.
type BatchRequest struct {
	Batch Batch
	Mode  Mode
	// Merged is true when the result will be aggregated with other batches, in which
	// case only a batch-scoped summary is wanted.
	Merged bool
}

// SummaryRequest asks for the narrative of an aggregated run.
type SummaryRequest struct {
	Stats      Stats
	Sample     []Finding
	Mode       Mode
	WasBatched bool
}

// ScriptRequest asks for the automation script.
type ScriptRequest struct {
	Mode     Mode
	GPONames []string
}

// Oracle is the remote analysis service. Implementations return errors wrapping one of
// the kind sentinels in this package.
type Oracle interface {
	AnalyzeBatch(ctx context.Context, req BatchRequest) (*Analysis, error)
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
	SynthesizeScript(ctx context.Context, req ScriptRequest) (string, error)
}
