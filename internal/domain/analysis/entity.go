package analysis

import "strings"

// Mode comparison mode
type Mode string

const (
	// ModeAllToAll compares every report against every other report in the same batch.
	ModeAllToAll Mode = "all-to-all"
	// ModeOneToAll compares a base report against each comparison report.
	ModeOneToAll Mode = "one-to-all"
)

// FindingType enum
type FindingType string

const (
	FindingConflict FindingType = "Conflict"
	FindingOverlap  FindingType = "Overlap"
)

// Severity enum, conflicts only
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
)

// PolicyState enum
type PolicyState string

const (
	StateEnabled  PolicyState = "Enabled"
	StateDisabled PolicyState = "Disabled"
	StateValue    PolicyState = "Value"
)

// NotApplicable is the value sentinel used when a policy has no value distinct from its state.
const NotApplicable = "Not Applicable"

// PolicyRecord is one GPO's configuration of the setting a finding is about.
type PolicyRecord struct {
	GPOName         string      `json:"gpoName"`
	Value           string      `json:"value"`
	PolicyState     PolicyState `json:"policyState"`
	IsWinningPolicy bool        `json:"isWinningPolicy,omitempty"`
}

// Finding is a detected conflict or overlap
type Finding struct {
	Type              FindingType    `json:"type"`
	Setting           string         `json:"setting"`
	Severity          Severity       `json:"severity,omitempty"`
	Recommendation    string         `json:"recommendation"`
	RemediationScript string         `json:"remediationScript,omitempty"`
	Policies          []PolicyRecord `json:"policies"`
}

// ConsolidationCandidate proposes merging a set of GPOs.
type ConsolidationCandidate struct {
	Recommendation string   `json:"recommendation"`
	GPOsToMerge    []string `json:"gposToMerge"`
	Justification  string   `json:"justification"`
}

// EntityDetails is the metadata of one analyzed GPO, identified by Name.
type EntityDetails struct {
	Name              string   `json:"name"`
	Links             []string `json:"links"`
	SecurityFiltering []string `json:"securityFiltering"`
	Delegation        []string `json:"delegation"`
}

// Stats value object
type Stats struct {
	TotalGPOs                  int `json:"totalGpos"`
	HighSeverityConflicts      int `json:"highSeverityConflicts"`
	MediumSeverityConflicts    int `json:"mediumSeverityConflicts"`
	Overlaps                   int `json:"overlaps"`
	ConsolidationOpportunities int `json:"consolidationOpportunities"`
}

// Add returns the coordinate-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		TotalGPOs:                  s.TotalGPOs + o.TotalGPOs,
		HighSeverityConflicts:      s.HighSeverityConflicts + o.HighSeverityConflicts,
		MediumSeverityConflicts:    s.MediumSeverityConflicts + o.MediumSeverityConflicts,
		Overlaps:                   s.Overlaps + o.Overlaps,
		ConsolidationOpportunities: s.ConsolidationOpportunities + o.ConsolidationOpportunities,
	}
}

func (s Stats) negative() bool {
	return s.TotalGPOs < 0 || s.HighSeverityConflicts < 0 || s.MediumSeverityConflicts < 0 ||
		s.Overlaps < 0 || s.ConsolidationOpportunities < 0
}

// Analysis is both the per-batch oracle result and the aggregated result.
type Analysis struct {
	Summary       string                   `json:"summary"`
	Stats         Stats                    `json:"stats"`
	Findings      []Finding                `json:"findings"`
	Consolidation []ConsolidationCandidate `json:"consolidation,omitempty"`
	GPODetails    []EntityDetails          `json:"gpoDetails"`
}

// GPONames lists the names in GPODetails, in order.
func (a Analysis) GPONames() []string {
	names := make([]string, 0, len(a.GPODetails))
	for _, d := range a.GPODetails {
		names = append(names, d.Name)
	}
	return names
}

// Response is the final result of one pipeline run.
type Response struct {
	Analysis Analysis `json:"analysis"`
	Script   string   `json:"script"`
}

// Request is the input of one pipeline run.
// BaseGPO is optional; an empty string means no base report.
type Request struct {
	BaseGPO        string   `json:"baseGpo,omitempty"`
	ComparisonGPOs []string `json:"comparisonGpos"`
	// MaxBatchSize overrides the configured batch size for this call when > 0.
	MaxBatchSize int `json:"maxBatchSize,omitempty"`
}

// HasBase reports whether a base report was supplied.
func (r Request) HasBase() bool { return r.BaseGPO != "" }

// Mode derives the comparison mode from the presence of a base report.
func (r Request) Mode() Mode {
	if r.HasBase() {
		return ModeOneToAll
	}
	return ModeAllToAll
}

// DocumentCount counts base plus comparisons.
func (r Request) DocumentCount() int {
	n := len(r.ComparisonGPOs)
	if r.HasBase() {
		n++
	}
	return n
}

// Batch is a contiguous slice of the comparison list, paired with the base report.
type Batch struct {
	Index   int // 1-based
	Total   int
	BaseGPO string
	GPOs    []string
}

// Documents returns the base (if any) followed by the batch's comparison reports.
func (b Batch) Documents() []string {
	docs := make([]string, 0, len(b.GPOs)+1)
	if b.BaseGPO != "" {
		docs = append(docs, b.BaseGPO)
	}
	return append(docs, b.GPOs...)
}

// Progress is reported after each unit of work.
type Progress struct {
	Stage   Phase `json:"stage"`
	Current int   `json:"current"`
	Total   int   `json:"total"`
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
