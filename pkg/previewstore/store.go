// Package previewstore holds the bounded, in-memory dry-run preview state
// used by the orchestrator's run phases: a running
// classification breakdown and a capped sample list per run, evicted once
// the run reaches a terminal status.
package previewstore

import (
	"sync"

	"github.com/feedforward/feedforward/pkg/models"
)

// Store is safe for concurrent use by multiple pipeline phases running
// against the same run.
type Store struct {
	mu         sync.Mutex
	maxSamples int
	runs       map[string]*runState
}

type runState struct {
	breakdown map[string]int
	samples   []models.ConversationPeek
	themes    map[string]int
}

// New creates a Store that retains at most maxSamples conversation peeks
// per run.
func New(maxSamples int) *Store {
	if maxSamples <= 0 {
		maxSamples = 20
	}
	return &Store{maxSamples: maxSamples, runs: make(map[string]*runState)}
}

func (s *Store) stateFor(runID string) *runState {
	rs, ok := s.runs[runID]
	if !ok {
		rs = &runState{breakdown: make(map[string]int), themes: make(map[string]int)}
		s.runs[runID] = rs
	}
	return rs
}

// AddSample records a conversation peek for the run, dropping the oldest
// sample once the cap is reached.
func (s *Store) AddSample(runID string, peek models.ConversationPeek) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.stateFor(runID)
	if len(rs.samples) >= s.maxSamples {
		rs.samples = rs.samples[1:]
	}
	rs.samples = append(rs.samples, peek)
}

// RecordClassification bumps the breakdown count for a classification type.
func (s *Store) RecordClassification(runID, classType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.stateFor(runID)
	rs.breakdown[classType]++
}

// RecordTheme bumps the occurrence count for a resolution theme, used to
// surface the preview's top-themes list.
func (s *Store) RecordTheme(runID, theme string) {
	if theme == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.stateFor(runID)
	rs.themes[theme]++
}

// Snapshot returns the current preview state for a run. Returns false if no
// state has been recorded (run unknown or not in dry-run mode).
func (s *Store) Snapshot(runID string) (models.DryRunPreview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.runs[runID]
	if !ok {
		return models.DryRunPreview{}, false
	}

	breakdown := make(map[string]int, len(rs.breakdown))
	for k, v := range rs.breakdown {
		breakdown[k] = v
	}
	samples := make([]models.ConversationPeek, len(rs.samples))
	copy(samples, rs.samples)

	return models.DryRunPreview{
		RunID:                   runID,
		ClassificationBreakdown: breakdown,
		Samples:                 samples,
		TopThemes:               topThemes(rs.themes, 5),
	}, true
}

// Evict discards a run's preview state. Called once a run reaches a
// terminal status so the preview store doesn't grow unbounded across runs.
func (s *Store) Evict(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

func topThemes(counts map[string]int, limit int) []string {
	type kv struct {
		theme string
		count int
	}
	ranked := make([]kv, 0, len(counts))
	for theme, count := range counts {
		ranked = append(ranked, kv{theme, count})
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].count > ranked[j-1].count; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.theme
	}
	return out
}
