// Package profile defines the value types emitted by the Scriven analytics
// engine: the four derived feature bundles, the answer-tag bundle, and the
// [InputProfile] that wraps them all.
//
// All types serialize to a stable JSON schema. Enum values use snake_case on
// the wire, and the mode / user-state sets always serialize in declared enum
// order so that identical inputs produce byte-identical JSON.
package profile

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/varenhold/scriven/pkg/event"
)

// SourceType classifies where the message content came from.
type SourceType string

// SourceType values.
const (
	SourceTypedOnly SourceType = "typed_only"
	SourcePasteOnly SourceType = "paste_only"
	SourceMixed     SourceType = "mixed"
)

// FirstAction records the first content-producing action of the session.
type FirstAction string

// FirstAction values. FirstOther covers sessions that never saw a typed
// character or a paste before finalization.
const (
	FirstPaste FirstAction = "paste"
	FirstTyped FirstAction = "typed"
	FirstOther FirstAction = "other"
)

// SourceFeatures describes the typed/pasted mix of a composition.
type SourceFeatures struct {
	// SourceType is typed_only when only typed characters were observed,
	// paste_only when only pasted characters were, and mixed otherwise —
	// including the degenerate case where neither was observed.
	SourceType SourceType `json:"type"`

	// PasteRatio is pasted_chars / (typed_chars + pasted_chars), or 0 when
	// no characters were produced at all. Always in [0, 1].
	PasteRatio float64 `json:"paste_ratio"`

	// PasteEvents counts Paste events regardless of length.
	PasteEvents int `json:"paste_events"`

	FirstAction FirstAction `json:"first_action"`
}

// TimingFeatures describes the cadence of a composition.
type TimingFeatures struct {
	// TotalDurationMs spans from the first observed event to the last.
	TotalDurationMs uint64 `json:"total_duration_ms"`

	// AvgCharsPerSec is typed characters per second over the total duration;
	// 0 when the duration is 0.
	AvgCharsPerSec float64 `json:"avg_chars_per_sec"`

	// TypingBursts counts contiguous runs of events with no inter-event gap
	// exceeding the long-pause threshold. At least 1 once any event has been
	// observed.
	TypingBursts int `json:"typing_bursts"`

	// LongPauseCount counts inter-event gaps above the threshold. Each long
	// pause closes exactly one burst.
	LongPauseCount int `json:"long_pause_count"`

	// PreSubmitPauseMs is the gap between the final Submit and the event
	// before it, or 0 when no Submit was observed.
	PreSubmitPauseMs uint64 `json:"pre_submit_pause_ms"`
}

// EditingFeatures describes how much rework went into a composition.
type EditingFeatures struct {
	BackspaceCount      int `json:"backspace_count"`
	BackspaceBurstCount int `json:"backspace_burst_count"`
	UndoCount           int `json:"undo_count"`
	RedoCount           int `json:"redo_count"`
	SelectionEditCount  int `json:"selection_edit_count"`

	// EfficiencyScore is final_char_count / total_typed_chars clamped to
	// [0, 1]; 1 when nothing was typed.
	EfficiencyScore float64 `json:"efficiency_score"`
}

// StructureFeatures describes the structural and linguistic shape of the
// final text. Derived purely from the text snapshot, never from events.
type StructureFeatures struct {
	CharCount             int     `json:"char_count"`
	LineCount             int     `json:"line_count"`
	AvgLineLength         float64 `json:"avg_line_length"`
	BulletLines           int     `json:"bullet_lines"`
	HasCodeBlock          bool    `json:"has_code_block"`
	QuestionLike          bool    `json:"question_like"`
	CommandLike           bool    `json:"command_like"`
	JapaneseDetected      bool    `json:"japanese_detected"`
	RequestSummary        bool    `json:"request_summary"`
	RequestImplementation bool    `json:"request_implementation"`
	IsPolite              bool    `json:"is_polite"`
	IsDirect              bool    `json:"is_direct"`
}

// AnswerMode is a coarse directive for how a response generator should
// answer.
type AnswerMode string

// AnswerMode values, in declared (serialization) order.
const (
	ModeSummarize       AnswerMode = "summarize"
	ModeStructure       AnswerMode = "structure"
	ModeRefine          AnswerMode = "refine"
	ModeExplore         AnswerMode = "explore"
	ModeComplete        AnswerMode = "complete"
	ModeClarifyQuestion AnswerMode = "clarify_question"
)

// answerModeOrder fixes the serialization order of mode sets.
var answerModeOrder = map[AnswerMode]int{
	ModeSummarize:       0,
	ModeStructure:       1,
	ModeRefine:          2,
	ModeExplore:         3,
	ModeComplete:        4,
	ModeClarifyQuestion: 5,
}

// ScopeHint suggests how broad the answer should range.
type ScopeHint string

// ScopeHint values.
const (
	ScopeNarrow ScopeHint = "narrow"
	ScopeMedium ScopeHint = "medium"
	ScopeBroad  ScopeHint = "broad"
)

// ToneHint suggests the register of the answer.
type ToneHint string

// ToneHint values.
const (
	ToneDirect  ToneHint = "direct"
	ToneGentle  ToneHint = "gentle"
	ToneNeutral ToneHint = "neutral"
)

// DepthHint suggests how deeply the answer should go.
type DepthHint string

// DepthHint values.
const (
	DepthShallow DepthHint = "shallow"
	DepthNormal  DepthHint = "normal"
	DepthDeep    DepthHint = "deep"
)

// UserState is a behavioral classification of the writer during composition.
type UserState string

// UserState values, in declared (serialization) order.
const (
	StateHesitant  UserState = "hesitant"
	StateFlowing   UserState = "flowing"
	StateEditing   UserState = "editing"
	StateScattered UserState = "scattered"
	StatePasting   UserState = "pasting"
	StateFocused   UserState = "focused"
)

// userStateOrder fixes the serialization order of user-state sets.
var userStateOrder = map[UserState]int{
	StateHesitant:  0,
	StateFlowing:   1,
	StateEditing:   2,
	StateScattered: 3,
	StatePasting:   4,
	StateFocused:   5,
}

// AnswerTags is the derived directive bundle consumed by response
// generators. Mode and user-state sets are unordered for equality purposes
// but are stored (and serialized) in declared enum order.
type AnswerTags struct {
	AnswerMode []AnswerMode `json:"answer_mode"`
	ScopeHint  ScopeHint    `json:"scope_hint"`
	ToneHint   ToneHint     `json:"tone_hint"`
	DepthHint  DepthHint    `json:"depth_hint"`
	UserState  []UserState  `json:"user_state"`
	Confidence float64      `json:"confidence"`
}

// InputProfile is the full analysis of one composed message.
type InputProfile struct {
	MessageID string            `json:"message_id"`
	Source    SourceFeatures    `json:"source"`
	Timing    TimingFeatures    `json:"timing"`
	Editing   EditingFeatures   `json:"editing"`
	Structure StructureFeatures `json:"structure"`
	Tags      AnswerTags        `json:"tags"`

	// GhostText holds captured deleted-thought strings in capture order.
	// Serialized as an empty array, never null.
	GhostText []string `json:"ghost_text"`
}

// SessionSnapshot bundles a finalized profile with the event stream that
// produced it.
type SessionSnapshot struct {
	Profile InputProfile  `json:"profile"`
	Events  []event.Event `json:"events"`
}

// MarshalJSON encodes the snapshot with the events in their tagged-envelope
// wire form.
func (s SessionSnapshot) MarshalJSON() ([]byte, error) {
	rawEvents := make([]json.RawMessage, 0, len(s.Events))
	for i, e := range s.Events {
		b, err := event.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("profile: snapshot event %d: %w", i, err)
		}
		rawEvents = append(rawEvents, b)
	}
	return json.Marshal(struct {
		Profile InputProfile      `json:"profile"`
		Events  []json.RawMessage `json:"events"`
	}{Profile: s.Profile, Events: rawEvents})
}

// UnmarshalJSON decodes a snapshot produced by [SessionSnapshot.MarshalJSON].
func (s *SessionSnapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Profile InputProfile      `json:"profile"`
		Events  []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("profile: decode snapshot: %w", err)
	}
	events := make([]event.Event, 0, len(raw.Events))
	for i, r := range raw.Events {
		e, err := event.Unmarshal(r)
		if err != nil {
			return fmt.Errorf("profile: snapshot event %d: %w", i, err)
		}
		events = append(events, e)
	}
	s.Profile = raw.Profile
	s.Events = events
	return nil
}

// Render returns the profile as pretty-printed JSON, the canonical output
// format of preview and finalize.
func (p InputProfile) Render() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// SortModes orders a mode set by declared enum order, in place, and returns
// it. Unknown values sort last, preserving their relative order.
func SortModes(modes []AnswerMode) []AnswerMode {
	sort.SliceStable(modes, func(i, j int) bool {
		return modeRank(modes[i]) < modeRank(modes[j])
	})
	return modes
}

// SortStates orders a user-state set by declared enum order, in place, and
// returns it.
func SortStates(states []UserState) []UserState {
	sort.SliceStable(states, func(i, j int) bool {
		return stateRank(states[i]) < stateRank(states[j])
	})
	return states
}

func modeRank(m AnswerMode) int {
	if r, ok := answerModeOrder[m]; ok {
		return r
	}
	return len(answerModeOrder)
}

func stateRank(s UserState) int {
	if r, ok := userStateOrder[s]; ok {
		return r
	}
	return len(userStateOrder)
}
