package analysis

const (
	DefaultMaxBatchSize  = 10
	DefaultMaxTotalBytes = 4 << 20
	DefaultFindingSample = 5
	minDocuments         = 2
)

// Limits bounds one pipeline run.
type Limits struct {
	MaxBatchSize  int
	MaxTotalBytes int // 0 disables the size budget
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{MaxBatchSize: DefaultMaxBatchSize, MaxTotalBytes: DefaultMaxTotalBytes}
}

// Validate checks the request against the document count, blank and size rules.
func Validate(req Request, lim Limits) error {
	if n := req.DocumentCount(); n < minDocuments {
		return validationf("at least %d reports are required, got %d", minDocuments, n)
	}
	if req.HasBase() && isBlank(req.BaseGPO) {
		return validationf("base report is empty")
	}
	total := len(req.BaseGPO)
	for i, doc := range req.ComparisonGPOs {
		if isBlank(doc) {
			return validationf("report %d is empty", i+1)
		}
		total += len(doc)
	}
	if lim.MaxTotalBytes > 0 && total > lim.MaxTotalBytes {
		return validationf("reports total %d bytes, limit is %d", total, lim.MaxTotalBytes)
	}
	return nil
}

// Plan validates req and splits its comparison reports into batches of at most
// maxBatchSize, preserving order. Every batch carries the base report unchanged.
func Plan(req Request, lim Limits) ([]Batch, error) {
	if err := Validate(req, lim); err != nil {
		return nil, err
	}
	size := lim.MaxBatchSize
	if req.MaxBatchSize > 0 {
		size = req.MaxBatchSize
	}
	if size <= 0 {
		size = DefaultMaxBatchSize
	}

	docs := req.ComparisonGPOs
	if len(docs) <= size {
		return []Batch{{Index: 1, Total: 1, BaseGPO: req.BaseGPO, GPOs: docs[:len(docs):len(docs)]}}, nil
	}

	total := (len(docs) + size - 1) / size
	batches := make([]Batch, 0, total)
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		batches = append(batches, Batch{
			Index:   len(batches) + 1,
			Total:   total,
			BaseGPO: req.BaseGPO,
			// cap the slice so appends never touch the caller's array
			GPOs: docs[start:end:end],
		})
	}
	return batches, nil
}
