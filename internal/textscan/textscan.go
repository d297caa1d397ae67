// Package textscan analyzes the final text snapshot of a composition and
// produces its structural and linguistic features.
//
// Analyze is a pure function: it reads nothing but its argument and keeps no
// state, so identical snapshots always produce identical features. All
// counts are in Unicode scalar values, never bytes.
package textscan

import (
	"strings"
	"unicode/utf8"

	"github.com/varenhold/scriven/pkg/profile"
)

// politeMarkers are Japanese polite-register fragments.
var politeMarkers = []string{"ます", "です", "ください", "お願い"}

// implementationKeywords mark an explicit implementation request in the
// lowercased text.
var implementationKeywords = []string{"implement", "write code", "function"}

// commandPrefixes mark an imperative opening in the lowercased text.
var commandPrefixes = []string{"please", "write", "create"}

// Analyze derives [profile.StructureFeatures] from a text snapshot.
func Analyze(text string) profile.StructureFeatures {
	charCount := utf8.RuneCountInString(text)
	lines := splitLines(text)
	lineCount := len(lines)

	avgLineLength := 0.0
	if lineCount > 0 {
		avgLineLength = float64(charCount) / float64(lineCount)
	}

	bulletLines := 0
	hasCodeBlock := strings.Contains(text, "```")
	for _, l := range lines {
		if isBulletLine(l) {
			bulletLines++
		}
		if strings.HasPrefix(l, "    ") || strings.HasPrefix(l, "\t") {
			hasCodeBlock = true
		}
	}

	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(text)
	japanese := containsJapanese(text)

	return profile.StructureFeatures{
		CharCount:        charCount,
		LineCount:        lineCount,
		AvgLineLength:    avgLineLength,
		BulletLines:      bulletLines,
		HasCodeBlock:     hasCodeBlock,
		QuestionLike:     strings.HasSuffix(trimmed, "?") || strings.Contains(text, "?"),
		CommandLike:      hasAnyPrefix(lower, commandPrefixes),
		JapaneseDetected: japanese,
		RequestSummary: strings.Contains(lower, "summarize") ||
			strings.Contains(text, "要約"),
		RequestImplementation: containsAny(lower, implementationKeywords) ||
			strings.Contains(text, "実装"),
		IsPolite: japanese && containsAny(text, politeMarkers),
		IsDirect: japanese && (strings.Contains(text, "だ。") ||
			strings.Contains(text, "である") ||
			strings.HasSuffix(trimmed, "やれ") ||
			strings.HasSuffix(trimmed, "しろ")),
	}
}

// splitLines splits on newlines, counting a non-terminated trailing line but
// not a trailing terminator. The empty string has no lines. Windows line
// endings are normalized by stripping the carriage return.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// isBulletLine reports whether the leading-whitespace-trimmed line looks
// like a bullet ("- ", "* ") or an ordered-list item (leading ASCII digit
// with a ". " later in the line).
func isBulletLine(line string) bool {
	t := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") {
		return true
	}
	if t == "" {
		return false
	}
	first := t[0]
	return first >= '0' && first <= '9' && strings.Contains(t, ". ")
}

// containsJapanese reports whether any rune falls in the Hiragana, Katakana,
// or CJK Unified Ideograph blocks.
func containsJapanese(text string) bool {
	for _, r := range text {
		switch {
		case r >= 0x3040 && r <= 0x309F: // Hiragana
			return true
		case r >= 0x30A0 && r <= 0x30FF: // Katakana
			return true
		case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
