package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// SummarySystemPrompt is the role for the narrative call.
const SummarySystemPrompt = "You are a senior Active Directory engineer writing an executive summary of a Group Policy review. Respond with plain prose only, three to six sentences, no markdown and no JSON."

// SummaryPrompt asks for the narrative over aggregated stats and a sample of findings.
func SummaryPrompt(req analysis.SummaryRequest) (string, error) {
	stats, err := json.Marshal(req.Stats)
	if err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}
	sample := req.Sample
	if sample == nil {
		sample = []analysis.Finding{}
	}
	findings, err := json.Marshal(sample)
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Comparison mode: %s.\n", req.Mode)
	fmt.Fprintf(&b, "Aggregated statistics: %s\n", stats)
	fmt.Fprintf(&b, "Most relevant findings: %s\n", findings)
	b.WriteString("Summarize the overall health of these GPOs and the most important actions.\n")
	if analysis.NeedsCaveat(req.Mode, req.WasBatched) {
		b.WriteString("The reports were analyzed in separate batches and each batch was only compared with itself. You must end the summary with this sentence, unchanged: \"")
		b.WriteString(analysis.CrossBatchCaveat)
		b.WriteString("\"\n")
	}
	return b.String(), nil
}
