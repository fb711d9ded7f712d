package analysis

import (
	domain "github.com/bryanwahyu/gpolens/internal/domain/analysis"
)

// EventType enum
type EventType string

const (
	EventProgress EventType = "progress"
	EventPartial  EventType = "partial"
	EventDone     EventType = "done"
	EventFailed   EventType = "failed"
)

// Partial is one batch's own, not yet aggregated, result.
type Partial struct {
	Batch    int             `json:"batch"`
	Total    int             `json:"total"`
	Analysis domain.Analysis `json:"analysis"`
}

// Event is what the pipeline reports to its observer. Exactly one of Progress,
// Partial, Response or Err is set, matching Type.
type Event struct {
	Type     EventType        `json:"type"`
	Progress *domain.Progress `json:"progress,omitempty"`
	Partial  *Partial         `json:"partial,omitempty"`
	Response *domain.Response `json:"response,omitempty"`
	Err      error            `json:"-"`
}

// Emitter receives events synchronously on the pipeline's goroutine.
type Emitter func(Event)

// Callbacks adapts separate progress and partial-result callbacks to an Emitter.
// Either callback may be nil.
func Callbacks(onProgress func(domain.Progress), onPartial func(Partial)) Emitter {
	return func(e Event) {
		switch e.Type {
		case EventProgress:
			if onProgress != nil && e.Progress != nil {
				onProgress(*e.Progress)
			}
		case EventPartial:
			if onPartial != nil && e.Partial != nil {
				onPartial(*e.Partial)
			}
		}
	}
}
