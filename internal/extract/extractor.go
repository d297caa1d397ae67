// Package extract implements the per-session feature extractor: a single
// state machine that consumes input events in arrival order and accumulates
// the running statistics behind the source, timing, and editing feature
// bundles.
//
// The extractor is append-only: no event ever decreases an accumulated
// count. It is not safe for concurrent use on its own — the session registry
// serializes access per session.
package extract

import (
	"github.com/varenhold/scriven/pkg/event"
	"github.com/varenhold/scriven/pkg/profile"
)

// longPauseThresholdMs is the inter-event gap above which the current typing
// burst is considered closed and a long pause is counted.
const longPauseThresholdMs = 1500

// selection is a pending nonempty selection range awaiting an edit.
type selection struct {
	start int
	end   int
}

// Extractor accumulates per-session input statistics. Create with [New] and
// feed events through [Extractor.Process]; read derived features through the
// feature-view methods at any point.
type Extractor struct {
	startTime     uint64
	lastEventTime uint64
	hasStartTime  bool
	hasLastEvent  bool

	firstAction    profile.FirstAction
	hasFirstAction bool

	pasteEvents      int
	totalPastedChars int
	totalTypedChars  int

	typingBursts   int
	longPauseCount int

	backspaceCount      int
	backspaceBurstCount int
	inBackspaceBurst    bool
	undoCount           int
	redoCount           int
	selectionEditCount  int

	pendingSelection *selection

	// preSubmitTS is the timestamp of the event immediately preceding the
	// most recent Submit; valid only when hasSubmit is set and the Submit was
	// not the first event.
	preSubmitTS    uint64
	hasPreSubmitTS bool
	submitTS       uint64
	hasSubmit      bool

	events     []event.Event
	ghostTexts []string
}

// New returns an empty extractor.
func New() *Extractor {
	return &Extractor{}
}

// Process applies one event to the accumulated state. Events must be applied
// in arrival order; timestamps are expected to be non-decreasing but equal
// timestamps are accepted.
func (x *Extractor) Process(e event.Event) {
	x.events = append(x.events, e)

	ts := e.Time()
	if !x.hasStartTime {
		x.startTime = ts
		x.hasStartTime = true
		// The first event opens the first burst.
		x.typingBursts++
	}

	if x.hasLastEvent {
		gap := ts - x.lastEventTime
		if ts < x.lastEventTime {
			gap = 0
		}
		if gap > longPauseThresholdMs {
			x.longPauseCount++
			// The pause closes the current burst; this event opens a new one.
			x.typingBursts++
		}
	}
	if _, ok := e.(event.Submit); ok && x.hasLastEvent {
		x.preSubmitTS = x.lastEventTime
		x.hasPreSubmitTS = true
	}
	x.lastEventTime = ts
	x.hasLastEvent = true

	switch ev := e.(type) {
	case event.KeyInsert:
		x.totalTypedChars++
		x.inBackspaceBurst = false
		if sel := x.pendingSelection; sel != nil && sel.end > sel.start {
			x.selectionEditCount++
		}
		x.pendingSelection = nil
		x.setFirstAction(profile.FirstTyped)
	case event.KeyDelete:
		if ev.DeleteKind == event.DeleteBackspace {
			x.backspaceCount += int(ev.Count)
			if !x.inBackspaceBurst {
				x.backspaceBurstCount++
				x.inBackspaceBurst = true
			}
		} else {
			// Forward deletes are destructive edits too, but they never open
			// a backspace burst.
			x.backspaceCount += int(ev.Count)
			x.inBackspaceBurst = false
		}
	case event.Paste:
		x.pasteEvents++
		x.totalPastedChars += ev.Length
		x.setFirstAction(profile.FirstPaste)
		x.inBackspaceBurst = false
		// A paste over a selection replaces it like an insert would, but
		// does not count as a selection edit.
		x.pendingSelection = nil
	case event.Cut:
		x.backspaceCount += ev.Length
		x.inBackspaceBurst = false
	case event.SelectionChange:
		if ev.End > ev.Start {
			x.pendingSelection = &selection{start: ev.Start, end: ev.End}
		} else {
			x.pendingSelection = nil
		}
		x.inBackspaceBurst = false
	case event.Undo:
		x.undoCount++
		x.inBackspaceBurst = false
	case event.Redo:
		x.redoCount++
		x.inBackspaceBurst = false
	case event.Submit:
		x.submitTS = ts
		x.hasSubmit = true
		x.inBackspaceBurst = false
	case event.GhostText:
		x.ghostTexts = append(x.ghostTexts, ev.Text)
	case event.CursorMove:
		x.inBackspaceBurst = false
	case event.CompositionStart, event.CompositionEnd:
		// Timing only. Composition boundaries do not influence features yet.
	}
}

func (x *Extractor) setFirstAction(a profile.FirstAction) {
	if !x.hasFirstAction {
		x.firstAction = a
		x.hasFirstAction = true
	}
}

// SourceFeatures derives the typed/pasted mix from the accumulated counts.
func (x *Extractor) SourceFeatures() profile.SourceFeatures {
	totalChars := x.totalTypedChars + x.totalPastedChars
	ratio := 0.0
	if totalChars > 0 {
		ratio = float64(x.totalPastedChars) / float64(totalChars)
	}

	var st profile.SourceType
	switch {
	case x.totalTypedChars > 0 && x.totalPastedChars == 0:
		st = profile.SourceTypedOnly
	case x.totalTypedChars == 0 && x.totalPastedChars > 0:
		st = profile.SourcePasteOnly
	default:
		st = profile.SourceMixed
	}

	first := x.firstAction
	if !x.hasFirstAction {
		first = profile.FirstOther
	}

	return profile.SourceFeatures{
		SourceType:  st,
		PasteRatio:  ratio,
		PasteEvents: x.pasteEvents,
		FirstAction: first,
	}
}

// TimingFeatures derives cadence statistics from the accumulated state.
func (x *Extractor) TimingFeatures() profile.TimingFeatures {
	var duration uint64
	if x.hasStartTime && x.lastEventTime > x.startTime {
		duration = x.lastEventTime - x.startTime
	}

	cps := 0.0
	if duration > 0 {
		cps = float64(x.totalTypedChars) / (float64(duration) / 1000.0)
	}

	var preSubmit uint64
	if x.hasSubmit && x.hasPreSubmitTS && x.submitTS > x.preSubmitTS {
		preSubmit = x.submitTS - x.preSubmitTS
	}

	return profile.TimingFeatures{
		TotalDurationMs:  duration,
		AvgCharsPerSec:   cps,
		TypingBursts:     x.typingBursts,
		LongPauseCount:   x.longPauseCount,
		PreSubmitPauseMs: preSubmit,
	}
}

// EditingFeatures derives rework statistics. finalCharCount is the codepoint
// count of the final text snapshot, supplied by the caller.
func (x *Extractor) EditingFeatures(finalCharCount int) profile.EditingFeatures {
	score := 1.0
	if x.totalTypedChars > 0 {
		score = float64(finalCharCount) / float64(x.totalTypedChars)
		if score > 1.0 {
			score = 1.0
		}
		if score < 0.0 {
			score = 0.0
		}
	}

	return profile.EditingFeatures{
		BackspaceCount:      x.backspaceCount,
		BackspaceBurstCount: x.backspaceBurstCount,
		UndoCount:           x.undoCount,
		RedoCount:           x.redoCount,
		SelectionEditCount:  x.selectionEditCount,
		EfficiencyScore:     score,
	}
}

// Events returns a copy of the ordered event log, suitable for export and
// replay.
func (x *Extractor) Events() []event.Event {
	out := make([]event.Event, len(x.events))
	copy(out, x.events)
	return out
}

// GhostTexts returns a copy of the captured ghost-text strings in capture
// order.
func (x *Extractor) GhostTexts() []string {
	out := make([]string, len(x.ghostTexts))
	copy(out, x.ghostTexts)
	return out
}

// EventCount reports how many events have been applied.
func (x *Extractor) EventCount() int {
	return len(x.events)
}
