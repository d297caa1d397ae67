// Package event defines the input event model for Scriven.
//
// An [Event] describes one low-level action the user performed while
// composing a message: a keypress, a deletion, a paste, a cursor or selection
// change, an IME composition boundary, an undo/redo, a submit, or a captured
// ghost text. Events carry a millisecond timestamp relative to an arbitrary
// but monotonic epoch chosen by the producer; the analytics engine only ever
// looks at differences between timestamps.
//
// Events are wire-stable: the JSON encoding is a tagged envelope
//
//	{"type": "KeyInsert", "payload": {"ch": "a", "ts": 1000}}
//
// and a round trip through [MarshalList] / [UnmarshalList] reproduces an
// equivalent stream, so exported sessions can be replayed into a fresh
// registry with identical results.
package event

// Kind is the wire tag identifying an event variant.
type Kind string

// Event variant tags as they appear in the JSON "type" field.
const (
	KindKeyInsert        Kind = "KeyInsert"
	KindKeyDelete        Kind = "KeyDelete"
	KindPaste            Kind = "Paste"
	KindCut              Kind = "Cut"
	KindCursorMove       Kind = "CursorMove"
	KindSelectionChange  Kind = "SelectionChange"
	KindCompositionStart Kind = "CompositionStart"
	KindCompositionEnd   Kind = "CompositionEnd"
	KindSubmit           Kind = "Submit"
	KindUndo             Kind = "Undo"
	KindRedo             Kind = "Redo"
	KindGhostText        Kind = "GhostText"
)

// DeleteKind distinguishes the two destructive key variants.
type DeleteKind string

// Valid DeleteKind values.
const (
	DeleteBackspace DeleteKind = "Backspace"
	DeleteForward   DeleteKind = "Delete"
)

// Event is one element of a composition event stream.
//
// Implementations are small value types; treat them as immutable once pushed
// into a session.
type Event interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Time returns the event timestamp in milliseconds. Timestamps within a
	// single session are non-decreasing but not necessarily strictly
	// increasing.
	Time() uint64
}

// KeyInsert records a single codepoint typed by the user.
type KeyInsert struct {
	Ch rune
	TS uint64
}

// KeyDelete records one or more destructive key presses of the same kind.
type KeyDelete struct {
	DeleteKind DeleteKind
	Count      uint32
	TS         uint64
}

// Paste records a clipboard insertion. Only the codepoint count is retained;
// pasted content never enters the engine.
type Paste struct {
	Length int
	TS     uint64
}

// Cut records a clipboard removal, by codepoint count.
type Cut struct {
	Length int
	TS     uint64
}

// CursorMove records a caret reposition without an edit.
type CursorMove struct {
	Position int
	TS       uint64
}

// SelectionChange records the active selection range. Start <= End; an empty
// range (Start == End) clears any pending selection.
type SelectionChange struct {
	Start int
	End   int
	TS    uint64
}

// CompositionStart marks the beginning of an IME composition run.
type CompositionStart struct {
	TS uint64
}

// CompositionEnd marks the end of an IME composition run.
type CompositionEnd struct {
	TS uint64
}

// Submit is the terminal marker of a composition; by convention the last
// event of a session.
type Submit struct {
	TS uint64
}

// Undo records an undo action.
type Undo struct {
	TS uint64
}

// Redo records a redo action.
type Redo struct {
	TS uint64
}

// GhostText carries a deleted-then-preserved fragment of the user's draft,
// surfaced verbatim to the prompt layer.
type GhostText struct {
	Text string
	TS   uint64
}

func (e KeyInsert) Kind() Kind        { return KindKeyInsert }
func (e KeyDelete) Kind() Kind        { return KindKeyDelete }
func (e Paste) Kind() Kind            { return KindPaste }
func (e Cut) Kind() Kind              { return KindCut }
func (e CursorMove) Kind() Kind       { return KindCursorMove }
func (e SelectionChange) Kind() Kind  { return KindSelectionChange }
func (e CompositionStart) Kind() Kind { return KindCompositionStart }
func (e CompositionEnd) Kind() Kind   { return KindCompositionEnd }
func (e Submit) Kind() Kind           { return KindSubmit }
func (e Undo) Kind() Kind             { return KindUndo }
func (e Redo) Kind() Kind             { return KindRedo }
func (e GhostText) Kind() Kind        { return KindGhostText }

func (e KeyInsert) Time() uint64        { return e.TS }
func (e KeyDelete) Time() uint64        { return e.TS }
func (e Paste) Time() uint64            { return e.TS }
func (e Cut) Time() uint64              { return e.TS }
func (e CursorMove) Time() uint64       { return e.TS }
func (e SelectionChange) Time() uint64  { return e.TS }
func (e CompositionStart) Time() uint64 { return e.TS }
func (e CompositionEnd) Time() uint64   { return e.TS }
func (e Submit) Time() uint64           { return e.TS }
func (e Undo) Time() uint64             { return e.TS }
func (e Redo) Time() uint64             { return e.TS }
func (e GhostText) Time() uint64        { return e.TS }

// ValidDeleteKind reports whether k is one of the two known delete kinds.
func ValidDeleteKind(k DeleteKind) bool {
	return k == DeleteBackspace || k == DeleteForward
}
