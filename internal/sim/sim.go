// Package sim synthesizes composition event streams for the CLI simulator.
//
// Streams are fully deterministic: timestamps start at a fixed epoch and
// advance by the pacing derived from the requested typing speed, so the same
// text and mode always produce the same profile.
package sim

import (
	"fmt"

	"github.com/varenhold/scriven/pkg/event"
)

// Mode selects how the simulated user produced the text.
type Mode string

// Valid simulation modes.
const (
	ModeTyped Mode = "typed"
	ModePaste Mode = "paste"
	ModeMixed Mode = "mixed"
)

// epochMs is the timestamp of the first synthesized event.
const epochMs = 1000

// ParseMode validates a mode string from the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTyped, ModePaste, ModeMixed:
		return Mode(s), nil
	}
	return "", fmt.Errorf("sim: mode %q is invalid; valid values: typed, paste, mixed", s)
}

// charDelayMs converts words-per-minute into a per-character keystroke delay,
// using the conventional five characters per word.
func charDelayMs(wpm uint64) uint64 {
	if wpm == 0 {
		wpm = 60
	}
	return 60_000 / (wpm * 5)
}

// Synthesize produces the event stream a user composing text in the given
// mode would generate, terminated by a Submit.
func Synthesize(text string, mode Mode, wpm uint64) []event.Event {
	var events []event.Event
	ts := uint64(epochMs)
	delay := charDelayMs(wpm)

	runes := []rune(text)
	switch mode {
	case ModePaste:
		events = append(events, event.Paste{Length: len(runes), TS: ts})
		ts += 100
	case ModeMixed:
		// Type the first half, paste the rest.
		half := runes[:len(runes)/2]
		rest := runes[len(runes)/2:]
		for _, ch := range half {
			events = append(events, event.KeyInsert{Ch: ch, TS: ts})
			ts += delay
		}
		events = append(events, event.Paste{Length: len(rest), TS: ts})
		ts += 500
	default:
		for _, ch := range runes {
			events = append(events, event.KeyInsert{Ch: ch, TS: ts})
			ts += delay
		}
	}

	events = append(events, event.Submit{TS: ts})
	return events
}
