package extract_test

import (
	"testing"

	"github.com/varenhold/scriven/internal/extract"
	"github.com/varenhold/scriven/pkg/event"
	"github.com/varenhold/scriven/pkg/profile"
)

// typeText pushes one KeyInsert per rune starting at ts with the given gap,
// returning the timestamp the next event should use.
func typeText(x *extract.Extractor, text string, ts, gap uint64) uint64 {
	for _, ch := range text {
		x.Process(event.KeyInsert{Ch: ch, TS: ts})
		ts += gap
	}
	return ts
}

func TestBurstsAndPauses(t *testing.T) {
	t.Parallel()

	t.Run("first event opens the first burst", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyInsert{Ch: 'a', TS: 1000})
		tf := x.TimingFeatures()
		if tf.TypingBursts != 1 {
			t.Fatalf("TypingBursts = %d, want 1", tf.TypingBursts)
		}
		if tf.LongPauseCount != 0 {
			t.Fatalf("LongPauseCount = %d, want 0", tf.LongPauseCount)
		}
	})

	t.Run("gap over threshold closes a burst", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyInsert{Ch: 'a', TS: 1000})
		x.Process(event.KeyInsert{Ch: 'b', TS: 2501}) // 1501ms gap
		tf := x.TimingFeatures()
		if tf.TypingBursts != 2 {
			t.Fatalf("TypingBursts = %d, want 2", tf.TypingBursts)
		}
		if tf.LongPauseCount != 1 {
			t.Fatalf("LongPauseCount = %d, want 1", tf.LongPauseCount)
		}
	})

	t.Run("gap of exactly threshold does not close", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyInsert{Ch: 'a', TS: 1000})
		x.Process(event.KeyInsert{Ch: 'b', TS: 2500}) // exactly 1500ms
		tf := x.TimingFeatures()
		if tf.TypingBursts != 1 || tf.LongPauseCount != 0 {
			t.Fatalf("bursts=%d pauses=%d, want 1/0", tf.TypingBursts, tf.LongPauseCount)
		}
	})

	t.Run("equal timestamps are accepted", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyInsert{Ch: 'a', TS: 1000})
		x.Process(event.KeyInsert{Ch: 'b', TS: 1000})
		tf := x.TimingFeatures()
		if tf.TotalDurationMs != 0 {
			t.Fatalf("TotalDurationMs = %d, want 0", tf.TotalDurationMs)
		}
		if tf.TypingBursts != 1 {
			t.Fatalf("TypingBursts = %d, want 1", tf.TypingBursts)
		}
	})

	t.Run("pause count never exceeds bursts minus one", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		ts := uint64(1000)
		for i := 0; i < 10; i++ {
			x.Process(event.KeyInsert{Ch: 'a', TS: ts})
			ts += 2000 // every gap is a long pause
		}
		tf := x.TimingFeatures()
		if tf.LongPauseCount > tf.TypingBursts-1 {
			t.Fatalf("LongPauseCount %d > TypingBursts-1 %d", tf.LongPauseCount, tf.TypingBursts-1)
		}
	})
}

func TestFirstAction(t *testing.T) {
	t.Parallel()

	t.Run("typed wins when first", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.CursorMove{Position: 0, TS: 1000})
		x.Process(event.KeyInsert{Ch: 'a', TS: 1100})
		x.Process(event.Paste{Length: 10, TS: 1200})
		if got := x.SourceFeatures().FirstAction; got != profile.FirstTyped {
			t.Fatalf("FirstAction = %q, want %q", got, profile.FirstTyped)
		}
	})

	t.Run("paste wins when first", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.Paste{Length: 10, TS: 1000})
		x.Process(event.KeyInsert{Ch: 'a', TS: 1100})
		if got := x.SourceFeatures().FirstAction; got != profile.FirstPaste {
			t.Fatalf("FirstAction = %q, want %q", got, profile.FirstPaste)
		}
	})

	t.Run("other when neither ever happens", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.CursorMove{Position: 0, TS: 1000})
		x.Process(event.Submit{TS: 1100})
		if got := x.SourceFeatures().FirstAction; got != profile.FirstOther {
			t.Fatalf("FirstAction = %q, want %q", got, profile.FirstOther)
		}
	})
}

func TestDestructiveEdits(t *testing.T) {
	t.Parallel()

	t.Run("backspace run is one burst", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		ts := typeText(x, "hello", 1000, 100)
		for i := 0; i < 3; i++ {
			x.Process(event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: ts})
			ts += 100
		}
		ef := x.EditingFeatures(2)
		if ef.BackspaceCount != 3 {
			t.Fatalf("BackspaceCount = %d, want 3", ef.BackspaceCount)
		}
		if ef.BackspaceBurstCount != 1 {
			t.Fatalf("BackspaceBurstCount = %d, want 1", ef.BackspaceBurstCount)
		}
	})

	t.Run("insert splits backspace bursts", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: 1000})
		x.Process(event.KeyInsert{Ch: 'a', TS: 1100})
		x.Process(event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: 1200})
		if got := x.EditingFeatures(0).BackspaceBurstCount; got != 2 {
			t.Fatalf("BackspaceBurstCount = %d, want 2", got)
		}
	})

	t.Run("forward delete counts but breaks the burst", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: 1000})
		x.Process(event.KeyDelete{DeleteKind: event.DeleteForward, Count: 2, TS: 1100})
		x.Process(event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: 1200})
		ef := x.EditingFeatures(0)
		if ef.BackspaceCount != 4 {
			t.Fatalf("BackspaceCount = %d, want 4", ef.BackspaceCount)
		}
		if ef.BackspaceBurstCount != 2 {
			t.Fatalf("BackspaceBurstCount = %d, want 2", ef.BackspaceBurstCount)
		}
	})

	t.Run("cut adds length without a burst", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.Cut{Length: 12, TS: 1000})
		ef := x.EditingFeatures(0)
		if ef.BackspaceCount != 12 {
			t.Fatalf("BackspaceCount = %d, want 12", ef.BackspaceCount)
		}
		if ef.BackspaceBurstCount != 0 {
			t.Fatalf("BackspaceBurstCount = %d, want 0", ef.BackspaceBurstCount)
		}
	})
}

func TestSelectionEdits(t *testing.T) {
	t.Parallel()

	t.Run("insert over nonempty selection counts", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		typeText(x, "Hello", 1000, 100)
		x.Process(event.SelectionChange{Start: 0, End: 5, TS: 1600})
		x.Process(event.KeyInsert{Ch: 'H', TS: 1700})
		x.Process(event.KeyInsert{Ch: 'i', TS: 1800})
		if got := x.EditingFeatures(2).SelectionEditCount; got != 1 {
			t.Fatalf("SelectionEditCount = %d, want 1", got)
		}
	})

	t.Run("empty selection clears pending", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.SelectionChange{Start: 0, End: 5, TS: 1000})
		x.Process(event.SelectionChange{Start: 3, End: 3, TS: 1100})
		x.Process(event.KeyInsert{Ch: 'a', TS: 1200})
		if got := x.EditingFeatures(1).SelectionEditCount; got != 0 {
			t.Fatalf("SelectionEditCount = %d, want 0", got)
		}
	})

	t.Run("paste over selection does not count", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.SelectionChange{Start: 0, End: 5, TS: 1000})
		x.Process(event.Paste{Length: 8, TS: 1100})
		x.Process(event.KeyInsert{Ch: 'a', TS: 1200})
		if got := x.EditingFeatures(9).SelectionEditCount; got != 0 {
			t.Fatalf("SelectionEditCount = %d, want 0", got)
		}
	})
}

func TestPreSubmitPause(t *testing.T) {
	t.Parallel()

	t.Run("real pause before submit", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyInsert{Ch: 'a', TS: 1000})
		x.Process(event.Submit{TS: 4000})
		if got := x.TimingFeatures().PreSubmitPauseMs; got != 3000 {
			t.Fatalf("PreSubmitPauseMs = %d, want 3000", got)
		}
	})

	t.Run("no submit means zero", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.KeyInsert{Ch: 'a', TS: 1000})
		if got := x.TimingFeatures().PreSubmitPauseMs; got != 0 {
			t.Fatalf("PreSubmitPauseMs = %d, want 0", got)
		}
	})

	t.Run("submit as only event means zero", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.Submit{TS: 1000})
		if got := x.TimingFeatures().PreSubmitPauseMs; got != 0 {
			t.Fatalf("PreSubmitPauseMs = %d, want 0", got)
		}
	})
}

func TestSourceFeatures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		typed     int
		pasted    int
		wantType  profile.SourceType
		wantRatio float64
	}{
		{"typed only", 5, 0, profile.SourceTypedOnly, 0},
		{"paste only", 0, 10, profile.SourcePasteOnly, 1},
		{"mixed", 5, 5, profile.SourceMixed, 0.5},
		{"both zero is mixed", 0, 0, profile.SourceMixed, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			x := extract.New()
			ts := uint64(1000)
			for i := 0; i < tc.typed; i++ {
				x.Process(event.KeyInsert{Ch: 'a', TS: ts})
				ts += 100
			}
			if tc.pasted > 0 {
				x.Process(event.Paste{Length: tc.pasted, TS: ts})
			}
			sf := x.SourceFeatures()
			if sf.SourceType != tc.wantType {
				t.Fatalf("SourceType = %q, want %q", sf.SourceType, tc.wantType)
			}
			if sf.PasteRatio != tc.wantRatio {
				t.Fatalf("PasteRatio = %v, want %v", sf.PasteRatio, tc.wantRatio)
			}
			if sf.PasteRatio < 0 || sf.PasteRatio > 1 {
				t.Fatalf("PasteRatio %v out of [0,1]", sf.PasteRatio)
			}
		})
	}
}

func TestEfficiencyScore(t *testing.T) {
	t.Parallel()

	t.Run("hello to help", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		ts := typeText(x, "Hello", 1000, 100)
		x.Process(event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: ts})
		x.Process(event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: ts + 100})
		ts = typeText(x, "p!", ts+200, 100)
		x.Process(event.Submit{TS: ts})

		ef := x.EditingFeatures(5) // "Help!"
		if ef.BackspaceCount != 2 {
			t.Fatalf("BackspaceCount = %d, want 2", ef.BackspaceCount)
		}
		if ef.BackspaceBurstCount != 1 {
			t.Fatalf("BackspaceBurstCount = %d, want 1", ef.BackspaceBurstCount)
		}
		if ef.EfficiencyScore <= 0.70 || ef.EfficiencyScore >= 0.72 {
			t.Fatalf("EfficiencyScore = %v, want in (0.70, 0.72)", ef.EfficiencyScore)
		}
	})

	t.Run("clamped to one", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		typeText(x, "ab", 1000, 100)
		if got := x.EditingFeatures(10).EfficiencyScore; got != 1.0 {
			t.Fatalf("EfficiencyScore = %v, want 1.0", got)
		}
	})

	t.Run("no typing is vacuously efficient", func(t *testing.T) {
		t.Parallel()
		x := extract.New()
		x.Process(event.Paste{Length: 100, TS: 1000})
		if got := x.EditingFeatures(100).EfficiencyScore; got != 1.0 {
			t.Fatalf("EfficiencyScore = %v, want 1.0", got)
		}
	})
}

func TestGhostTextsAndEventLog(t *testing.T) {
	t.Parallel()

	x := extract.New()
	x.Process(event.KeyInsert{Ch: 'a', TS: 1000})
	x.Process(event.GhostText{Text: "first draft", TS: 1100})
	x.Process(event.GhostText{Text: "second draft", TS: 1200})

	ghosts := x.GhostTexts()
	if len(ghosts) != 2 || ghosts[0] != "first draft" || ghosts[1] != "second draft" {
		t.Fatalf("GhostTexts = %q, want ordered pair", ghosts)
	}

	// Ghost texts never touch the content counts.
	if sf := x.SourceFeatures(); sf.SourceType != profile.SourceTypedOnly {
		t.Fatalf("SourceType = %q, want typed_only", sf.SourceType)
	}

	if got := x.EventCount(); got != 3 {
		t.Fatalf("EventCount = %d, want 3", got)
	}
	log := x.Events()
	if len(log) != 3 {
		t.Fatalf("len(Events()) = %d, want 3", len(log))
	}
	// The returned log is a copy; mutating it must not affect the extractor.
	log[0] = event.Submit{TS: 9999}
	if _, ok := x.Events()[0].(event.KeyInsert); !ok {
		t.Fatal("Events() must return a defensive copy")
	}
}

func TestUndoRedo(t *testing.T) {
	t.Parallel()

	x := extract.New()
	x.Process(event.Undo{TS: 1000})
	x.Process(event.Undo{TS: 1100})
	x.Process(event.Redo{TS: 1200})
	ef := x.EditingFeatures(0)
	if ef.UndoCount != 2 || ef.RedoCount != 1 {
		t.Fatalf("undo=%d redo=%d, want 2/1", ef.UndoCount, ef.RedoCount)
	}
}
