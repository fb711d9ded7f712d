package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValues(t *testing.T) {
	a := &Analysis{Findings: []Finding{{
		Type:    FindingConflict,
		Setting: "Interactive logon: Message title",
		Policies: []PolicyRecord{
			{GPOName: "A", Value: "Enabled", PolicyState: StateEnabled, IsWinningPolicy: true},
			{GPOName: "B", Value: "", PolicyState: StateDisabled},
			{GPOName: "C", Value: "Welcome", PolicyState: StateValue},
		},
	}}}
	require.NoError(t, Normalize(a))
	p := a.Findings[0].Policies
	assert.Equal(t, NotApplicable, p[0].Value)
	assert.Equal(t, NotApplicable, p[1].Value)
	assert.Equal(t, "Welcome", p[2].Value)
	assert.NotNil(t, a.GPODetails)
}

func TestNormalizeRejectsTwoWinners(t *testing.T) {
	a := &Analysis{Findings: []Finding{{Type: FindingConflict, Setting: "x", Policies: []PolicyRecord{
		{GPOName: "A", PolicyState: StateEnabled, IsWinningPolicy: true},
		{GPOName: "B", PolicyState: StateDisabled, IsWinningPolicy: true},
	}}}}
	assert.ErrorIs(t, Normalize(a), ErrOracleFormat)
}

func TestNormalizeRejectsNegativeStats(t *testing.T) {
	assert.ErrorIs(t, Normalize(&Analysis{Stats: Stats{Overlaps: -1}}), ErrOracleFormat)
	assert.ErrorIs(t, Normalize(nil), ErrOracleFormat)
}

func TestNormalizeCanonicalizesEnums(t *testing.T) {
	a := &Analysis{Findings: []Finding{{
		Type:     "conflict",
		Severity: "HIGH",
		Policies: []PolicyRecord{{GPOName: "A", Value: "1", PolicyState: " value "}},
	}}}
	require.NoError(t, Normalize(a))
	f := a.Findings[0]
	assert.Equal(t, FindingConflict, f.Type)
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.Equal(t, StateValue, f.Policies[0].PolicyState)
	assert.Equal(t, "1", f.Policies[0].Value)
}

func TestNormalizeRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		finding Finding
	}{
		{"unknown type", Finding{Type: "Bogus"}},
		{"missing type", Finding{}},
		{"unknown severity", Finding{Type: FindingConflict, Severity: "Critical"}},
		{"severity on overlap", Finding{Type: FindingOverlap, Severity: SeverityMedium}},
		{"unknown policy state", Finding{Type: FindingOverlap, Policies: []PolicyRecord{{GPOName: "A", PolicyState: "Maybe", Value: "x"}}}},
		{"missing policy state", Finding{Type: FindingConflict, Policies: []PolicyRecord{{GPOName: "A", Value: "x"}}}},
		{"everything wrong", Finding{Type: "Bogus", Severity: "Critical", Policies: []PolicyRecord{{PolicyState: "Maybe", Value: "x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Normalize(&Analysis{Findings: []Finding{tt.finding}})
			assert.ErrorIs(t, err, ErrOracleFormat)
		})
	}
}

func TestNormalizeAcceptsConflictWithoutSeverity(t *testing.T) {
	a := &Analysis{Findings: []Finding{{
		Type:     FindingConflict,
		Policies: []PolicyRecord{{GPOName: "A", PolicyState: StateDisabled}},
	}}}
	require.NoError(t, Normalize(a))
	assert.Equal(t, NotApplicable, a.Findings[0].Policies[0].Value)
}
