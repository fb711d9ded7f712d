package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// ScriptSystemPrompt is the role for the script call.
const ScriptSystemPrompt = "You are a PowerShell automation engineer. Respond with the script only."

// ScriptPrompt asks for a PowerShell script that reproduces the analysis against a live domain.
func ScriptPrompt(req analysis.ScriptRequest) string {
	var b strings.Builder
	b.WriteString("Write a PowerShell script using the GroupPolicy module that exports the GPOs below and reports the same kind of conflicts and overlaps.\n")
	fmt.Fprintf(&b, "Comparison mode: %s.\n", req.Mode)
	b.WriteString(`The script must accept these parameters:
- [string]$Domain: the domain to query, defaulting to the current domain.
- [string]$SearchBase: an OU distinguished name; only GPOs linked under it are included.
- [string[]]$IncludeSetting: wildcard patterns; only matching setting names are compared.
- [string[]]$ExcludeSetting: wildcard patterns of setting names to skip.
- [string[]]$ExcludeGpo: GPO display names to leave out.
It must write the findings as objects to the pipeline and support -Verbose.
`)
	b.WriteString("GPOs:\n")
	if len(req.GPONames) == 0 {
		b.WriteString("- (all GPOs in the domain)\n")
	}
	for _, name := range req.GPONames {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}
