package analysis

// Phase is a state of the pipeline state machine.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhasePlanning     Phase = "planning"
	PhaseExecuting    Phase = "analyzing"
	PhaseAggregating  Phase = "aggregating"
	PhaseSummarizing  Phase = "summarizing"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

var transitions = map[Phase][]Phase{
	PhaseIdle:         {PhasePlanning},
	PhasePlanning:     {PhaseExecuting, PhaseFailed},
	PhaseExecuting:    {PhaseExecuting, PhaseAggregating, PhaseSynthesizing, PhaseFailed},
	PhaseAggregating:  {PhaseSummarizing, PhaseFailed},
	PhaseSummarizing:  {PhaseSynthesizing, PhaseFailed},
	PhaseSynthesizing: {PhaseDone, PhaseFailed},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Terminal reports whether p ends a run.
func (p Phase) Terminal() bool { return p == PhaseDone || p == PhaseFailed }
