package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// SystemPrompt sets the analyst role and the JSON contract for batch analysis.
func SystemPrompt() string {
	return `You are a senior Active Directory engineer reviewing exported Group Policy Object (GPO) reports. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object with one top-level key "analysis".
- Every integer in stats is a non-negative count.
- findings[].type is "Conflict" or "Overlap". Conflicts carry a severity of "High" or "Medium"; overlaps carry none.
- findings[].policies[].policyState is "Enabled", "Disabled" or "Value".
- findings[].policies[].value must never repeat policyState. When the setting has no distinct value use the literal "Not Applicable".
- At most one policy per finding may set isWinningPolicy to true, and only when link order or enforcement decides precedence.
- gpoDetails has exactly one entry per GPO in the input, named as in the report.
- Never invent GPOs or settings that are not present in the reports.

Schema:
` + Schema
}

// Schema is the response contract shared by every provider.
const Schema = `{
  "analysis": {
    "summary": "<string>",
    "stats": {
      "totalGpos": 0,
      "highSeverityConflicts": 0,
      "mediumSeverityConflicts": 0,
      "overlaps": 0,
      "consolidationOpportunities": 0
    },
    "findings": [
      {
        "type": "<Conflict|Overlap>",
        "setting": "<string>",
        "severity": "<High|Medium>",
        "recommendation": "<string>",
        "remediationScript": "<optional PowerShell>",
        "policies": [
          {"gpoName": "<string>", "value": "<string or Not Applicable>", "policyState": "<Enabled|Disabled|Value>", "isWinningPolicy": false}
        ]
      }
    ],
    "consolidation": [
      {"recommendation": "<string>", "gposToMerge": ["<string>"], "justification": "<string>"}
    ],
    "gpoDetails": [
      {"name": "<string>", "links": ["<string>"], "securityFiltering": ["<string>"], "delegation": ["<string>"]}
    ]
  }
}`

// BatchPrompt embeds the comparison mode, the merge flag and the batch documents verbatim.
func BatchPrompt(req analysis.BatchRequest) string {
	var b strings.Builder
	b.Grow(len(req.Batch.BaseGPO) + 1024)

	switch req.Mode {
	case analysis.ModeOneToAll:
		b.WriteString("Compare the BASE GPO against each COMPARISON GPO. Report only conflicts and overlaps that involve the base GPO.\n")
	default:
		b.WriteString("Compare every GPO against every other GPO in this set and report all conflicts and overlaps between them.\n")
	}

	if req.Merged {
		fmt.Fprintf(&b, "This is batch %d of %d. Results will be merged with other batches, so keep the summary to two sentences about this batch only.\n", req.Batch.Index, req.Batch.Total)
	} else {
		b.WriteString("Write a complete executive summary of the findings.\n")
	}
	b.WriteString("Respond with the JSON object described in the system message.\n")

	if req.Batch.BaseGPO != "" {
		b.WriteString("\n=== BASE GPO ===\n")
		b.WriteString(req.Batch.BaseGPO)
		b.WriteString("\n")
	}
	for i, doc := range req.Batch.GPOs {
		fmt.Fprintf(&b, "\n=== COMPARISON GPO %d ===\n", i+1)
		b.WriteString(doc)
		b.WriteString("\n")
	}
	return b.String()
}
