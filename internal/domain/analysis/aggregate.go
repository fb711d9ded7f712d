package analysis

// Aggregate folds per-batch results into one Analysis. Stats are summed, findings and
// consolidation candidates are concatenated in batch order, and GPO details are
// de-duplicated by name keeping the first occurrence. Summary is left empty.
func Aggregate(results []Analysis) Analysis {
	out := Analysis{
		Findings:      []Finding{},
		Consolidation: []ConsolidationCandidate{},
		GPODetails:    []EntityDetails{},
	}
	seen := make(map[string]struct{})
	for _, r := range results {
		out.Stats = out.Stats.Add(r.Stats)
		out.Findings = append(out.Findings, r.Findings...)
		out.Consolidation = append(out.Consolidation, r.Consolidation...)
		for _, d := range r.GPODetails {
			if _, ok := seen[d.Name]; ok {
				continue
			}
			seen[d.Name] = struct{}{}
			out.GPODetails = append(out.GPODetails, d)
		}
	}
	return out
}

// Sample returns at most n findings from the front of fs.
func Sample(fs []Finding, n int) []Finding {
	if n < 0 {
		n = 0
	}
	if len(fs) <= n {
		return fs
	}
	return fs[:n:n]
}
