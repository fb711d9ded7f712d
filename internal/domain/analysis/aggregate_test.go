package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func batchResult(stats Stats, findings []Finding, details ...EntityDetails) Analysis {
	return Analysis{Summary: "batch", Stats: stats, Findings: findings, GPODetails: details}
}

func TestAggregateSumsStats(t *testing.T) {
	results := []Analysis{
		batchResult(Stats{TotalGPOs: 10, HighSeverityConflicts: 1, MediumSeverityConflicts: 2, Overlaps: 3, ConsolidationOpportunities: 4}, nil),
		batchResult(Stats{TotalGPOs: 10, HighSeverityConflicts: 5, Overlaps: 1}, nil),
		batchResult(Stats{TotalGPOs: 5, MediumSeverityConflicts: 1, ConsolidationOpportunities: 2}, nil),
	}
	got := Aggregate(results)
	assert.Equal(t, Stats{TotalGPOs: 25, HighSeverityConflicts: 6, MediumSeverityConflicts: 3, Overlaps: 4, ConsolidationOpportunities: 6}, got.Stats)
	assert.Empty(t, got.Summary)
}

func TestAggregateKeepsEveryFinding(t *testing.T) {
	same := Finding{Type: FindingConflict, Setting: "Password length", Severity: SeverityHigh}
	results := []Analysis{
		batchResult(Stats{}, []Finding{same}),
		batchResult(Stats{}, []Finding{same, {Type: FindingOverlap, Setting: "Screen saver"}}),
	}
	got := Aggregate(results)
	assert.Equal(t, []Finding{same, same, {Type: FindingOverlap, Setting: "Screen saver"}}, got.Findings)
}

func TestAggregateConcatenatesConsolidation(t *testing.T) {
	a := ConsolidationCandidate{Recommendation: "merge", GPOsToMerge: []string{"A", "B"}}
	b := ConsolidationCandidate{Recommendation: "merge", GPOsToMerge: []string{"C", "D"}}
	got := Aggregate([]Analysis{{Consolidation: []ConsolidationCandidate{a}}, {Consolidation: []ConsolidationCandidate{b}}})
	assert.Equal(t, []ConsolidationCandidate{a, b}, got.Consolidation)
}

func TestAggregateDedupesDetailsFirstWins(t *testing.T) {
	first := EntityDetails{Name: "Base Policy", Links: []string{"corp.local"}}
	later := EntityDetails{Name: "Base Policy", Links: []string{"corp.local", "OU=Servers"}}
	results := []Analysis{
		batchResult(Stats{}, nil, first, EntityDetails{Name: "A"}),
		batchResult(Stats{}, nil, later, EntityDetails{Name: "B"}),
	}
	got := Aggregate(results)
	assert.Equal(t, []EntityDetails{first, {Name: "A"}, {Name: "B"}}, got.GPODetails)
}

func TestAggregateIsDeterministic(t *testing.T) {
	results := []Analysis{
		batchResult(Stats{TotalGPOs: 2}, []Finding{{Setting: "x"}}, EntityDetails{Name: "A"}, EntityDetails{Name: "B"}),
		batchResult(Stats{TotalGPOs: 2}, []Finding{{Setting: "y"}}, EntityDetails{Name: "B"}, EntityDetails{Name: "C"}),
	}
	assert.Equal(t, Aggregate(results), Aggregate(results))
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	assert.NotNil(t, got.Findings)
	assert.NotNil(t, got.GPODetails)
	assert.Zero(t, got.Stats)
}

func TestSample(t *testing.T) {
	fs := make([]Finding, 8)
	assert.Len(t, Sample(fs, 5), 5)
	assert.Len(t, Sample(fs[:3], 5), 3)
	assert.Empty(t, Sample(fs, -1))
}
