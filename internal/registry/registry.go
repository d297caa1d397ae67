// Package registry holds the process-wide mapping from session id to feature
// extractor and orchestrates the message lifecycle: start, push, preview,
// finalize, export, import.
//
// A single mutex guards the whole map. Every operation resolves the session
// and does its bounded CPU work inside one critical section, which gives the
// consistency contract for free: previews see exactly the pushes that
// completed before them, and finalize removes-then-computes atomically so a
// racing push either lands before the removal or observes [ErrNotFound].
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/varenhold/scriven/internal/extract"
	"github.com/varenhold/scriven/internal/rules"
	"github.com/varenhold/scriven/internal/textscan"
	"github.com/varenhold/scriven/pkg/event"
	"github.com/varenhold/scriven/pkg/profile"
)

// Sentinel errors returned by registry operations.
var (
	// ErrNotFound reports an unknown (or already finalized) session id.
	ErrNotFound = errors.New("session not found")

	// ErrBadInput reports a malformed event log on import.
	ErrBadInput = errors.New("bad input")
)

// Registry is the session table. The zero value is not usable; create with
// [New]. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*extract.Extractor
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*extract.Extractor)}
}

// ParseID parses a session id string. Unparsable ids resolve to
// [ErrNotFound] — a syntactically invalid id can never name a session.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("registry: session id %q: %w", s, ErrNotFound)
	}
	return id, nil
}

// Start creates a fresh session and returns its id. Ids are random 128-bit
// UUIDs, unique per call.
func (r *Registry) Start() uuid.UUID {
	id := uuid.New()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = extract.New()
	return id
}

// Push applies one event to the session's extractor. Events for a single
// session are applied in the order their Push calls acquire the lock.
func (r *Registry) Push(id uuid.UUID, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("registry: session %s: %w", id, ErrNotFound)
	}
	x.Process(e)
	return nil
}

// Preview computes the profile against the given in-progress text without
// destroying the session.
func (r *Registry) Preview(id uuid.UUID, text string) (profile.InputProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, ok := r.sessions[id]
	if !ok {
		return profile.InputProfile{}, fmt.Errorf("registry: session %s: %w", id, ErrNotFound)
	}
	return buildProfile(id, x, text), nil
}

// Finalize removes the session and returns its profile computed against the
// final text. A second Finalize on the same id returns [ErrNotFound].
func (r *Registry) Finalize(id uuid.UUID, finalText string) (profile.InputProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, ok := r.sessions[id]
	if !ok {
		return profile.InputProfile{}, fmt.Errorf("registry: session %s: %w", id, ErrNotFound)
	}
	delete(r.sessions, id)
	return buildProfile(id, x, finalText), nil
}

// ExportEvents serializes the session's event log as a JSON array.
func (r *Registry) ExportEvents(id uuid.UUID) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("registry: session %s: %w", id, ErrNotFound)
	}
	data, err := event.MarshalList(x.Events())
	if err != nil {
		return nil, fmt.Errorf("registry: export session %s: %w", id, err)
	}
	return data, nil
}

// ImportEvents creates a fresh session and replays a serialized event log
// into it, returning the new id. Malformed input returns [ErrBadInput];
// the registry is left unchanged in that case.
func (r *Registry) ImportEvents(data []byte) (uuid.UUID, error) {
	events, err := event.UnmarshalList(data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("registry: import: %w: %v", ErrBadInput, err)
	}

	id := uuid.New()
	x := extract.New()
	for _, e := range events {
		x.Process(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = x
	return id, nil
}

// ExportSnapshot bundles the profile (computed against text, session kept
// alive) with the full event log.
func (r *Registry) ExportSnapshot(id uuid.UUID, text string) (profile.SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, ok := r.sessions[id]
	if !ok {
		return profile.SessionSnapshot{}, fmt.Errorf("registry: session %s: %w", id, ErrNotFound)
	}
	return profile.SessionSnapshot{
		Profile: buildProfile(id, x, text),
		Events:  x.Events(),
	}, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// buildProfile assembles the full profile from the extractor's feature views,
// the structure analyzer, and the rule engine. Called with the registry lock
// held.
func buildProfile(id uuid.UUID, x *extract.Extractor, text string) profile.InputProfile {
	source := x.SourceFeatures()
	timing := x.TimingFeatures()
	structure := textscan.Analyze(text)
	editing := x.EditingFeatures(structure.CharCount)
	tags := rules.Apply(source, timing, editing, structure)

	ghost := x.GhostTexts()
	if ghost == nil {
		ghost = []string{}
	}

	return profile.InputProfile{
		MessageID: id.String(),
		Source:    source,
		Timing:    timing,
		Editing:   editing,
		Structure: structure,
		Tags:      tags,
		GhostText: ghost,
	}
}
