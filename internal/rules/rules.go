// Package rules projects the four feature bundles of a composition into the
// bounded answer-tag space.
//
// Apply is a pure function. Rules fire independently in a fixed order; later
// rules may overwrite the scalar hints (scope, tone, depth) — last write
// wins. Each firing rule also contributes to the confidence score, which is
// clamped to [0, 1].
package rules

import (
	"github.com/varenhold/scriven/pkg/profile"
)

// Base values before any rule fires.
const (
	baseConfidence = 0.5

	// Confidence contributions per rule group.
	confStrong   = 0.3
	confModerate = 0.2
	confWeak     = 0.1
)

// Thresholds used by the tagging rules and user-state derivation.
const (
	heavyPasteRatio      = 0.8
	pastingRatio         = 0.5
	longSessionMs        = 30_000
	heavyBackspaceCount  = 20
	shortQueryLines      = 2
	shortQueryChars      = 40
	denseJapaneseChars   = 500
	hesitantCharsPerSec  = 2.0
	flowingCharsPerSec   = 5.0
	focusedCharsPerSec   = 4.0
	scatteredCharsPerSec = 3.0
)

// Apply derives [profile.AnswerTags] from the feature bundles of one
// composition.
func Apply(
	source profile.SourceFeatures,
	timing profile.TimingFeatures,
	editing profile.EditingFeatures,
	structure profile.StructureFeatures,
) profile.AnswerTags {
	modes := map[profile.AnswerMode]bool{}
	scope := profile.ScopeMedium
	tone := profile.ToneNeutral
	depth := profile.DepthNormal
	confidence := baseConfidence

	// A mostly-pasted multi-line message wants digestion.
	if source.PasteRatio > heavyPasteRatio && structure.LineCount >= 3 {
		modes[profile.ModeSummarize] = true
		modes[profile.ModeStructure] = true
		scope = profile.ScopeBroad
		confidence += confModerate
	}

	// A long, heavily reworked typed session wants polishing.
	if source.SourceType == profile.SourceTypedOnly &&
		timing.TotalDurationMs > longSessionMs &&
		editing.BackspaceCount > heavyBackspaceCount {
		modes[profile.ModeRefine] = true
		modes[profile.ModeClarifyQuestion] = true
		depth = profile.DepthDeep
		confidence += confModerate
	}

	// A very short message is an opening, not a brief.
	if structure.LineCount <= shortQueryLines && structure.CharCount < shortQueryChars {
		modes[profile.ModeExplore] = true
		modes[profile.ModeClarifyQuestion] = true
		scope = profile.ScopeBroad
		confidence += confWeak
	}

	// Mixed sources with selection rewrites suggest an unfinished draft.
	if source.SourceType == profile.SourceMixed && editing.SelectionEditCount > 2 {
		modes[profile.ModeComplete] = true
		confidence += confModerate
	}

	// Bullet lists want structured answers.
	if structure.BulletLines > 2 {
		modes[profile.ModeStructure] = true
		scope = profile.ScopeNarrow
		confidence += confWeak
	}

	// Questions get answered as questions.
	if structure.QuestionLike {
		modes[profile.ModeClarifyQuestion] = true
		confidence += confWeak
	}

	// Imperative openings get a direct register.
	if structure.CommandLike {
		tone = profile.ToneDirect
		confidence += confWeak
	}

	// Japanese text is denser and carries its own register markers.
	if structure.JapaneseDetected {
		if structure.CharCount > denseJapaneseChars {
			depth = profile.DepthDeep
		}
		if structure.IsPolite {
			tone = profile.ToneGentle
		} else if structure.IsDirect {
			tone = profile.ToneDirect
		}
		confidence += confWeak
	}

	// Explicit requests override behavioral inference.
	if structure.RequestSummary {
		modes[profile.ModeSummarize] = true
		scope = profile.ScopeBroad
		confidence += confStrong
	}
	if structure.RequestImplementation {
		modes[profile.ModeComplete] = true
		modes[profile.ModeStructure] = true
		tone = profile.ToneDirect
		confidence += confStrong
	}

	// Fallback: never emit an empty mode set.
	if len(modes) == 0 {
		modes[profile.ModeExplore] = true
	}

	if confidence > 1.0 {
		confidence = 1.0
	}

	return profile.AnswerTags{
		AnswerMode: sortedModes(modes),
		ScopeHint:  scope,
		ToneHint:   tone,
		DepthHint:  depth,
		UserState:  deriveUserStates(source, timing, editing),
		Confidence: confidence,
	}
}

// deriveUserStates classifies the writer's behavior during composition. The
// states are independent; any combination may fire together.
func deriveUserStates(
	source profile.SourceFeatures,
	timing profile.TimingFeatures,
	editing profile.EditingFeatures,
) []profile.UserState {
	states := map[profile.UserState]bool{}

	if timing.AvgCharsPerSec < hesitantCharsPerSec && timing.LongPauseCount > 2 {
		states[profile.StateHesitant] = true
	}
	if timing.AvgCharsPerSec > flowingCharsPerSec && timing.LongPauseCount == 0 {
		states[profile.StateFlowing] = true
	}
	if editing.BackspaceCount > 10 || editing.SelectionEditCount > 2 {
		states[profile.StateEditing] = true
	}
	if source.PasteRatio > pastingRatio {
		states[profile.StatePasting] = true
	}
	if timing.TypingBursts > 5 && timing.AvgCharsPerSec < scatteredCharsPerSec {
		states[profile.StateScattered] = true
	}
	if timing.AvgCharsPerSec > focusedCharsPerSec && editing.BackspaceCount < 5 {
		states[profile.StateFocused] = true
	}

	return sortedStates(states)
}

func sortedModes(set map[profile.AnswerMode]bool) []profile.AnswerMode {
	out := make([]profile.AnswerMode, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return profile.SortModes(out)
}

func sortedStates(set map[profile.UserState]bool) []profile.UserState {
	out := make([]profile.UserState, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return profile.SortStates(out)
}
