package analysis

import (
	"fmt"
	"strings"
)

// Normalize enforces the response contract on an oracle result in place.
// Empty values or values that only restate the policy state become NotApplicable and nil
// slices become empty. Enum fields are matched case-insensitively and rewritten to their
// canonical spelling. Unknown enum values, a severity on an overlap, negative counters or
// a finding with more than one winning policy are reported as ErrOracleFormat.
func Normalize(a *Analysis) error {
	if a == nil {
		return fmt.Errorf("%w: missing analysis object", ErrOracleFormat)
	}
	if a.Stats.negative() {
		return fmt.Errorf("%w: negative statistics %+v", ErrOracleFormat, a.Stats)
	}
	if a.Findings == nil {
		a.Findings = []Finding{}
	}
	if a.GPODetails == nil {
		a.GPODetails = []EntityDetails{}
	}
	for i := range a.Findings {
		if err := normalizeFinding(&a.Findings[i]); err != nil {
			return fmt.Errorf("%w: finding %d (%q): %s", ErrOracleFormat, i+1, a.Findings[i].Setting, err)
		}
	}
	return nil
}

func normalizeFinding(f *Finding) error {
	typ, ok := canonical(string(f.Type), string(FindingConflict), string(FindingOverlap))
	if !ok {
		return fmt.Errorf("unknown type %q", f.Type)
	}
	f.Type = FindingType(typ)

	if f.Severity != "" {
		if f.Type == FindingOverlap {
			return fmt.Errorf("overlap carries severity %q", f.Severity)
		}
		sev, ok := canonical(string(f.Severity), string(SeverityHigh), string(SeverityMedium))
		if !ok {
			return fmt.Errorf("unknown severity %q", f.Severity)
		}
		f.Severity = Severity(sev)
	}

	if f.Policies == nil {
		f.Policies = []PolicyRecord{}
	}
	winners := 0
	for j := range f.Policies {
		p := &f.Policies[j]
		state, ok := canonical(string(p.PolicyState), string(StateEnabled), string(StateDisabled), string(StateValue))
		if !ok {
			return fmt.Errorf("policy %q has unknown state %q", p.GPOName, p.PolicyState)
		}
		p.PolicyState = PolicyState(state)
		if p.IsWinningPolicy {
			winners++
		}
		v := strings.TrimSpace(p.Value)
		if v == "" || strings.EqualFold(v, state) {
			p.Value = NotApplicable
		}
	}
	if winners > 1 {
		return fmt.Errorf("%d winning policies", winners)
	}
	return nil
}

// canonical returns the member of allowed equal to s ignoring case and surrounding space.
func canonical(s string, allowed ...string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a, true
		}
	}
	return "", false
}
