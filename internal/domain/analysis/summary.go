package analysis

import "strings"

// CrossBatchCaveat must appear in the summary of a batched all-to-all run.
const CrossBatchCaveat = "Because the reports were analyzed in separate batches, conflicts and overlaps between GPOs that were placed in different batches may not have been detected."

// NeedsCaveat reports whether a summary must carry CrossBatchCaveat.
func NeedsCaveat(mode Mode, wasBatched bool) bool {
	return wasBatched && mode == ModeAllToAll
}

// EnsureCaveat appends CrossBatchCaveat to summary when the run requires it and the
// text does not already contain it.
func EnsureCaveat(summary string, mode Mode, wasBatched bool) string {
	if !NeedsCaveat(mode, wasBatched) || strings.Contains(summary, CrossBatchCaveat) {
		return summary
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return CrossBatchCaveat
	}
	return summary + " " + CrossBatchCaveat
}
