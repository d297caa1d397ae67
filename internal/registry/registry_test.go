package registry_test

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/varenhold/scriven/internal/registry"
	"github.com/varenhold/scriven/pkg/event"
	"github.com/varenhold/scriven/pkg/profile"
)

func mustPush(t *testing.T, r *registry.Registry, id uuid.UUID, events ...event.Event) {
	t.Helper()
	for _, e := range events {
		if err := r.Push(id, e); err != nil {
			t.Fatalf("Push: unexpected error: %v", err)
		}
	}
}

func typeEvents(text string, ts, gap uint64) []event.Event {
	events := make([]event.Event, 0, len(text))
	for _, ch := range text {
		events = append(events, event.KeyInsert{Ch: ch, TS: ts})
		ts += gap
	}
	return events
}

func lastTS(events []event.Event) uint64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Time()
}

func hasMode(p profile.InputProfile, m profile.AnswerMode) bool {
	return slices.Contains(p.Tags.AnswerMode, m)
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()
		r := registry.New()
		seen := map[uuid.UUID]bool{}
		for i := 0; i < 100; i++ {
			id := r.Start()
			if seen[id] {
				t.Fatalf("duplicate session id %s", id)
			}
			seen[id] = true
		}
	})

	t.Run("push on missing id", func(t *testing.T) {
		t.Parallel()
		r := registry.New()
		err := r.Push(uuid.New(), event.Submit{TS: 1})
		if !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("Push: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("preview does not destroy", func(t *testing.T) {
		t.Parallel()
		r := registry.New()
		id := r.Start()
		mustPush(t, r, id, event.KeyInsert{Ch: 'a', TS: 1000})

		if _, err := r.Preview(id, "a"); err != nil {
			t.Fatalf("Preview: unexpected error: %v", err)
		}
		if _, err := r.Preview(id, "ab"); err != nil {
			t.Fatalf("Preview (second): unexpected error: %v", err)
		}
		if _, err := r.Finalize(id, "ab"); err != nil {
			t.Fatalf("Finalize after previews: unexpected error: %v", err)
		}
	})

	t.Run("finalize twice fails the second time", func(t *testing.T) {
		t.Parallel()
		r := registry.New()
		id := r.Start()
		mustPush(t, r, id, event.KeyInsert{Ch: 'a', TS: 1000})

		if _, err := r.Finalize(id, "a"); err != nil {
			t.Fatalf("Finalize: unexpected error: %v", err)
		}
		_, err := r.Finalize(id, "a")
		if !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("second Finalize: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("parse id rejects garbage as not found", func(t *testing.T) {
		t.Parallel()
		_, err := registry.ParseID("definitely-not-a-uuid")
		if !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("ParseID: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("len tracks live sessions", func(t *testing.T) {
		t.Parallel()
		r := registry.New()
		a := r.Start()
		b := r.Start()
		if got := r.Len(); got != 2 {
			t.Fatalf("Len = %d, want 2", got)
		}
		if _, err := r.Finalize(a, ""); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if got := r.Len(); got != 1 {
			t.Fatalf("Len = %d, want 1", got)
		}
		_ = b
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()

	events := typeEvents("Check this out:", 1000, 100)
	next := lastTS(events) + 100
	events = append(events,
		event.Paste{Length: 500, TS: next},
		event.GhostText{Text: "never mind", TS: next + 100},
		event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 3, TS: next + 200},
		event.Submit{TS: next + 2000},
	)
	mustPush(t, r, id, events...)

	exported, err := r.ExportEvents(id)
	if err != nil {
		t.Fatalf("ExportEvents: unexpected error: %v", err)
	}

	imported, err := r.ImportEvents(exported)
	if err != nil {
		t.Fatalf("ImportEvents: unexpected error: %v", err)
	}
	if imported == id {
		t.Fatal("ImportEvents must create a fresh session id")
	}

	const finalText = "Check this out:\n\nsome long pasted article"
	a, err := r.Finalize(id, finalText)
	if err != nil {
		t.Fatalf("Finalize original: %v", err)
	}
	b, err := r.Finalize(imported, finalText)
	if err != nil {
		t.Fatalf("Finalize imported: %v", err)
	}

	// Identical features and tags; only the message id may differ.
	a.MessageID, b.MessageID = "", ""
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("replayed profile differs:\n got %+v\nwant %+v", b, a)
	}
}

func TestImportRejectsBadInput(t *testing.T) {
	t.Parallel()

	r := registry.New()
	for _, in := range []string{"", "{", `{"type":"Submit"}`, `[{"type":"Nope","payload":{}}]`} {
		_, err := r.ImportEvents([]byte(in))
		if !errors.Is(err, registry.ErrBadInput) {
			t.Fatalf("ImportEvents(%q): expected ErrBadInput, got %v", in, err)
		}
	}
	if got := r.Len(); got != 0 {
		t.Fatalf("failed imports must not leave sessions behind; Len = %d", got)
	}
}

func TestExportSnapshot(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()
	mustPush(t, r, id,
		event.KeyInsert{Ch: 'h', TS: 1000},
		event.KeyInsert{Ch: 'i', TS: 1100},
		event.Submit{TS: 1200},
	)

	snap, err := r.ExportSnapshot(id, "hi")
	if err != nil {
		t.Fatalf("ExportSnapshot: unexpected error: %v", err)
	}
	if len(snap.Events) != 3 {
		t.Fatalf("snapshot has %d events, want 3", len(snap.Events))
	}
	if snap.Profile.Structure.CharCount != 2 {
		t.Fatalf("snapshot CharCount = %d, want 2", snap.Profile.Structure.CharCount)
	}

	// The session survives a snapshot.
	if _, err := r.Finalize(id, "hi"); err != nil {
		t.Fatalf("Finalize after snapshot: unexpected error: %v", err)
	}
}

// S1 — a short typed lead-in followed by a large paste wants summarizing.
func TestScenarioSummarizePaste(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()

	events := typeEvents("Check this out:", 1000, 100)
	mustPush(t, r, id, events...)
	mustPush(t, r, id,
		event.Paste{Length: 500, TS: 2500},
		event.Submit{TS: 3000},
	)

	finalText := "Check this out:\n\n" + strings.Repeat("A long article content... ", 20)
	p, err := r.Finalize(id, finalText)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if p.Source.PasteRatio <= 0.8 {
		t.Fatalf("PasteRatio = %v, want > 0.8", p.Source.PasteRatio)
	}
	if p.Source.SourceType != profile.SourceMixed {
		t.Fatalf("SourceType = %q, want mixed", p.Source.SourceType)
	}
	if !hasMode(p, profile.ModeSummarize) || !hasMode(p, profile.ModeStructure) {
		t.Fatalf("AnswerMode = %v, want summarize+structure", p.Tags.AnswerMode)
	}
	if p.Tags.ScopeHint != profile.ScopeBroad {
		t.Fatalf("ScopeHint = %q, want broad", p.Tags.ScopeHint)
	}
}

// S2 — a slow, heavily backspaced typed session wants refinement.
func TestScenarioRefineTyped(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()

	ts := uint64(1000)
	for i := 0; i < 50; i++ {
		mustPush(t, r, id, event.KeyInsert{Ch: 'a', TS: ts})
		ts += 1000
	}
	for i := 0; i < 25; i++ {
		mustPush(t, r, id, event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: ts})
		ts += 200
	}
	mustPush(t, r, id, event.Submit{TS: ts})

	p, err := r.Finalize(id, "Final polished thought.")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if p.Source.SourceType != profile.SourceTypedOnly {
		t.Fatalf("SourceType = %q, want typed_only", p.Source.SourceType)
	}
	if p.Timing.TotalDurationMs <= 30000 {
		t.Fatalf("TotalDurationMs = %d, want > 30000", p.Timing.TotalDurationMs)
	}
	if p.Editing.BackspaceCount != 25 {
		t.Fatalf("BackspaceCount = %d, want 25", p.Editing.BackspaceCount)
	}
	if p.Editing.BackspaceBurstCount != 1 {
		t.Fatalf("BackspaceBurstCount = %d, want 1", p.Editing.BackspaceBurstCount)
	}
	if !hasMode(p, profile.ModeRefine) {
		t.Fatalf("AnswerMode = %v, want refine", p.Tags.AnswerMode)
	}
	if p.Tags.DepthHint != profile.DepthDeep {
		t.Fatalf("DepthHint = %q, want deep", p.Tags.DepthHint)
	}
}

// S3 — a three-character question gets exploration and a clarifying answer.
func TestScenarioShortQuery(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()
	mustPush(t, r, id, typeEvents("Hi?", 1000, 100)...)
	mustPush(t, r, id, event.Submit{TS: 1400})

	p, err := r.Finalize(id, "Hi?")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if p.Structure.LineCount != 1 || p.Structure.CharCount != 3 {
		t.Fatalf("lines=%d chars=%d, want 1/3", p.Structure.LineCount, p.Structure.CharCount)
	}
	if !p.Structure.QuestionLike {
		t.Fatal("QuestionLike = false, want true")
	}
	if !hasMode(p, profile.ModeExplore) || !hasMode(p, profile.ModeClarifyQuestion) {
		t.Fatalf("AnswerMode = %v, want explore+clarify_question", p.Tags.AnswerMode)
	}
	if p.Tags.ScopeHint != profile.ScopeBroad {
		t.Fatalf("ScopeHint = %q, want broad", p.Tags.ScopeHint)
	}
}

// S4 — polite Japanese summary request.
func TestScenarioJapanesePoliteSummary(t *testing.T) {
	t.Parallel()

	const text = "これは議事録です。要約してください。"

	r := registry.New()
	id := r.Start()
	events := typeEvents(text, 1000, 200)
	mustPush(t, r, id, events...)
	mustPush(t, r, id, event.Submit{TS: lastTS(events) + 200})

	p, err := r.Finalize(id, text)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if !p.Structure.JapaneseDetected || !p.Structure.RequestSummary || !p.Structure.IsPolite {
		t.Fatalf("structure = %+v, want japanese+summary+polite", p.Structure)
	}
	if p.Tags.ToneHint != profile.ToneGentle {
		t.Fatalf("ToneHint = %q, want gentle", p.Tags.ToneHint)
	}
	if !hasMode(p, profile.ModeSummarize) {
		t.Fatalf("AnswerMode = %v, want summarize", p.Tags.AnswerMode)
	}
	if p.Tags.Confidence <= 0.7 {
		t.Fatalf("Confidence = %v, want > 0.7", p.Tags.Confidence)
	}
}

// S5 — select-all then retype.
func TestScenarioSelectionReplace(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()
	mustPush(t, r, id, typeEvents("Hello", 1000, 100)...)
	mustPush(t, r, id,
		event.SelectionChange{Start: 0, End: 5, TS: 1600},
		event.KeyInsert{Ch: 'H', TS: 1700},
		event.KeyInsert{Ch: 'i', TS: 1800},
		event.Submit{TS: 1900},
	)

	p, err := r.Finalize(id, "Hi")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if p.Editing.SelectionEditCount < 1 {
		t.Fatalf("SelectionEditCount = %d, want >= 1", p.Editing.SelectionEditCount)
	}
	if p.Structure.CharCount != 2 {
		t.Fatalf("CharCount = %d, want 2", p.Structure.CharCount)
	}
}

// S6 — efficiency of a small correction.
func TestScenarioEfficiency(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()
	mustPush(t, r, id, typeEvents("Hello", 1000, 100)...)
	mustPush(t, r, id,
		event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: 1600},
		event.KeyDelete{DeleteKind: event.DeleteBackspace, Count: 1, TS: 1700},
	)
	mustPush(t, r, id, typeEvents("p!", 1800, 100)...)
	mustPush(t, r, id, event.Submit{TS: 2000})

	p, err := r.Finalize(id, "Help!")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if p.Editing.BackspaceCount != 2 {
		t.Fatalf("BackspaceCount = %d, want 2", p.Editing.BackspaceCount)
	}
	if p.Editing.BackspaceBurstCount != 1 {
		t.Fatalf("BackspaceBurstCount = %d, want 1", p.Editing.BackspaceBurstCount)
	}
	if s := p.Editing.EfficiencyScore; s <= 0.70 || s >= 0.72 {
		t.Fatalf("EfficiencyScore = %v, want in (0.70, 0.72)", s)
	}
}

func TestGhostTextsSurfaceInProfile(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()
	mustPush(t, r, id,
		event.KeyInsert{Ch: 'a', TS: 1000},
		event.GhostText{Text: "abandoned opener", TS: 1100},
		event.Submit{TS: 1200},
	)
	p, err := r.Finalize(id, "a")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !slices.Equal(p.GhostText, []string{"abandoned opener"}) {
		t.Fatalf("GhostText = %q, want the captured string", p.GhostText)
	}

	// Sessions without ghost texts serialize an empty array, not null.
	id2 := r.Start()
	p2, err := r.Finalize(id2, "")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if p2.GhostText == nil || len(p2.GhostText) != 0 {
		t.Fatalf("GhostText = %#v, want empty non-nil slice", p2.GhostText)
	}
}

func TestRenderDeterminism(t *testing.T) {
	t.Parallel()

	build := func() []byte {
		r := registry.New()
		id := r.Start()
		mustPush(t, r, id, typeEvents("summarize this please?", 1000, 50)...)
		mustPush(t, r, id, event.Submit{TS: 5000})
		p, err := r.Finalize(id, "summarize this please?")
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		p.MessageID = "fixed"
		out, err := p.Render()
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		return out
	}

	if a, b := build(), build(); string(a) != string(b) {
		t.Fatal("identical inputs produced different JSON")
	}
}

func TestConcurrentSessions(t *testing.T) {
	t.Parallel()

	r := registry.New()
	const sessions = 16
	const eventsPer = 200

	var wg sync.WaitGroup
	errCh := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := r.Start()
			ts := uint64(1000)
			for j := 0; j < eventsPer; j++ {
				if err := r.Push(id, event.KeyInsert{Ch: 'a', TS: ts}); err != nil {
					errCh <- fmt.Errorf("session %d push %d: %w", n, j, err)
					return
				}
				ts += 10
			}
			if err := r.Push(id, event.Submit{TS: ts}); err != nil {
				errCh <- err
				return
			}
			p, err := r.Finalize(id, strings.Repeat("a", eventsPer))
			if err != nil {
				errCh <- err
				return
			}
			if p.Source.SourceType != profile.SourceTypedOnly {
				errCh <- fmt.Errorf("session %d: SourceType = %q", n, p.Source.SourceType)
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
	if got := r.Len(); got != 0 {
		t.Fatalf("Len = %d after all finalizes, want 0", got)
	}
}

func TestConcurrentPushAndFinalizeSameID(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.Start()
	mustPush(t, r, id, event.KeyInsert{Ch: 'a', TS: 1000})

	var wg sync.WaitGroup
	start := make(chan struct{})

	pushErrs := make([]error, 8)
	for i := range pushErrs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			pushErrs[n] = r.Push(id, event.KeyInsert{Ch: 'b', TS: 2000})
		}(i)
	}

	var finalizeErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, finalizeErr = r.Finalize(id, "ab")
	}()

	close(start)
	wg.Wait()

	if finalizeErr != nil {
		t.Fatalf("Finalize: unexpected error: %v", finalizeErr)
	}
	// Every push either applied before the finalize or observed NotFound;
	// nothing else is acceptable.
	for i, err := range pushErrs {
		if err != nil && !errors.Is(err, registry.ErrNotFound) {
			t.Fatalf("push %d: unexpected error: %v", i, err)
		}
	}
	if _, err := r.Preview(id, "x"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("Preview after finalize: expected ErrNotFound, got %v", err)
	}
}
