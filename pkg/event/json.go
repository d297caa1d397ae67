package event

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// envelope is the wire shape of a single event.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Per-variant payload shapes. The "ch" field of KeyInsert is a one-rune
// string on the wire; all counts and positions are plain numbers.
type (
	keyInsertPayload struct {
		Ch string `json:"ch"`
		TS uint64 `json:"ts"`
	}
	keyDeletePayload struct {
		Kind  DeleteKind `json:"kind"`
		Count uint32     `json:"count"`
		TS    uint64     `json:"ts"`
	}
	lengthPayload struct {
		Length int    `json:"length"`
		TS     uint64 `json:"ts"`
	}
	cursorMovePayload struct {
		Position int    `json:"position"`
		TS       uint64 `json:"ts"`
	}
	selectionPayload struct {
		Start int    `json:"start"`
		End   int    `json:"end"`
		TS    uint64 `json:"ts"`
	}
	tsPayload struct {
		TS uint64 `json:"ts"`
	}
	ghostTextPayload struct {
		Text string `json:"text"`
		TS   uint64 `json:"ts"`
	}
)

// Marshal encodes a single event into its tagged-envelope JSON form.
func Marshal(e Event) ([]byte, error) {
	payload, err := marshalPayload(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: e.Kind(), Payload: payload})
}

func marshalPayload(e Event) (json.RawMessage, error) {
	var body any
	switch ev := e.(type) {
	case KeyInsert:
		body = keyInsertPayload{Ch: string(ev.Ch), TS: ev.TS}
	case KeyDelete:
		body = keyDeletePayload{Kind: ev.DeleteKind, Count: ev.Count, TS: ev.TS}
	case Paste:
		body = lengthPayload{Length: ev.Length, TS: ev.TS}
	case Cut:
		body = lengthPayload{Length: ev.Length, TS: ev.TS}
	case CursorMove:
		body = cursorMovePayload{Position: ev.Position, TS: ev.TS}
	case SelectionChange:
		body = selectionPayload{Start: ev.Start, End: ev.End, TS: ev.TS}
	case CompositionStart:
		body = tsPayload{TS: ev.TS}
	case CompositionEnd:
		body = tsPayload{TS: ev.TS}
	case Submit:
		body = tsPayload{TS: ev.TS}
	case Undo:
		body = tsPayload{TS: ev.TS}
	case Redo:
		body = tsPayload{TS: ev.TS}
	case GhostText:
		body = ghostTextPayload{Text: ev.Text, TS: ev.TS}
	default:
		return nil, fmt.Errorf("event: cannot marshal unknown event type %T", e)
	}
	return json.Marshal(body)
}

// Unmarshal decodes a single tagged-envelope event.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("event: decode envelope: %w", err)
	}
	return decodeEnvelope(env)
}

func decodeEnvelope(env envelope) (Event, error) {
	switch env.Type {
	case KindKeyInsert:
		var p keyInsertPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		ch, size := utf8.DecodeRuneInString(p.Ch)
		if size == 0 || size != len(p.Ch) || ch == utf8.RuneError && size == 1 {
			return nil, fmt.Errorf("event: KeyInsert ch %q is not a single codepoint", p.Ch)
		}
		return KeyInsert{Ch: ch, TS: p.TS}, nil
	case KindKeyDelete:
		var p keyDeletePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		if !ValidDeleteKind(p.Kind) {
			return nil, fmt.Errorf("event: KeyDelete kind %q is invalid; valid values: Backspace, Delete", p.Kind)
		}
		if p.Count < 1 {
			return nil, fmt.Errorf("event: KeyDelete count %d must be >= 1", p.Count)
		}
		return KeyDelete{DeleteKind: p.Kind, Count: p.Count, TS: p.TS}, nil
	case KindPaste:
		var p lengthPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		if p.Length < 0 {
			return nil, fmt.Errorf("event: Paste length %d must be >= 0", p.Length)
		}
		return Paste{Length: p.Length, TS: p.TS}, nil
	case KindCut:
		var p lengthPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		if p.Length < 0 {
			return nil, fmt.Errorf("event: Cut length %d must be >= 0", p.Length)
		}
		return Cut{Length: p.Length, TS: p.TS}, nil
	case KindCursorMove:
		var p cursorMovePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		return CursorMove{Position: p.Position, TS: p.TS}, nil
	case KindSelectionChange:
		var p selectionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		if p.End < p.Start {
			return nil, fmt.Errorf("event: SelectionChange end %d is before start %d", p.End, p.Start)
		}
		return SelectionChange{Start: p.Start, End: p.End, TS: p.TS}, nil
	case KindCompositionStart, KindCompositionEnd, KindSubmit, KindUndo, KindRedo:
		var p tsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		switch env.Type {
		case KindCompositionStart:
			return CompositionStart{TS: p.TS}, nil
		case KindCompositionEnd:
			return CompositionEnd{TS: p.TS}, nil
		case KindSubmit:
			return Submit{TS: p.TS}, nil
		case KindUndo:
			return Undo{TS: p.TS}, nil
		default:
			return Redo{TS: p.TS}, nil
		}
	case KindGhostText:
		var p ghostTextPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("event: decode %s payload: %w", env.Type, err)
		}
		return GhostText{Text: p.Text, TS: p.TS}, nil
	default:
		return nil, fmt.Errorf("event: unknown event type %q", env.Type)
	}
}

// MarshalList encodes an event stream as a pretty-printed JSON array, the
// format produced by a session's event export.
func MarshalList(events []Event) ([]byte, error) {
	envs := make([]envelope, 0, len(events))
	for i, e := range events {
		payload, err := marshalPayload(e)
		if err != nil {
			return nil, fmt.Errorf("event: marshal element %d: %w", i, err)
		}
		envs = append(envs, envelope{Type: e.Kind(), Payload: payload})
	}
	return json.MarshalIndent(envs, "", "  ")
}

// UnmarshalList decodes an exported event stream. The input must be a JSON
// array of tagged envelopes; any unknown tag or malformed payload fails the
// whole decode.
func UnmarshalList(data []byte) ([]Event, error) {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("event: decode event list: %w", err)
	}
	events := make([]Event, 0, len(envs))
	for i, env := range envs {
		e, err := decodeEnvelope(env)
		if err != nil {
			return nil, fmt.Errorf("event: element %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}
