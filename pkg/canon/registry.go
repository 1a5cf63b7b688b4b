package canon

import (
	"context"
	"log/slog"
	"sync"
)

// Store is the persistence boundary Registry commits through. Implemented
// by an orchestrator-side adapter over services.AliasService, converting
// Kind to the ent-generated signaturealias.Kind.
type Store interface {
	// LoadAll returns every normalized_raw -> canonical mapping for kind.
	LoadAll(ctx context.Context, kind Kind) (map[string]string, error)
	// Upsert writes normalizedRaw -> canonical, last-writer-wins. Returns
	// true if it overwrote a different existing canonical value.
	Upsert(ctx context.Context, kind Kind, normalizedRaw, canonical string) (overwrote bool, err error)
}

type pendingAlias struct {
	kind          Kind
	normalizedRaw string
	canonical     string
}

// Registry is a run-scoped, in-memory view of the alias tables. Load once
// at run start, Canonicalize/Propose freely during the run (no store
// access on the hot path), Commit once at the end.
type Registry struct {
	store Store

	mu        sync.Mutex
	component map[string]string
	product   map[string]string
	pending   map[string]pendingAlias // keyed by kind+normalizedRaw, last Propose wins in-session
}

// New constructs a Registry backed by store. Call Load before use.
func New(store Store) *Registry {
	return &Registry{
		store:     store,
		component: map[string]string{},
		product:   map[string]string{},
		pending:   map[string]pendingAlias{},
	}
}

// Load populates the in-memory registry from the store. Call once at run
// start, before any Canonicalize calls.
func (r *Registry) Load(ctx context.Context) error {
	component, err := r.store.LoadAll(ctx, KindComponent)
	if err != nil {
		return err
	}
	product, err := r.store.LoadAll(ctx, KindProductArea)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.component = component
	r.product = product
	return nil
}

// Canonicalize resolves raw to its canonical form. If no alias exists yet,
// the normalized form of raw becomes its own provisional canonical value
// (first-seen-becomes-canonical) and is staged via Propose so future runs
// inherit the mapping without repeating the decision. inferred reports
// whether this call invented the mapping rather than finding an existing
// one.
func (r *Registry) Canonicalize(kind Kind, raw string) (canonical string, inferred bool) {
	normalized := Normalize(raw)
	if normalized == "" {
		return "", false
	}

	r.mu.Lock()
	table := r.tableFor(kind)
	if existing, ok := table[normalized]; ok {
		r.mu.Unlock()
		return existing, false
	}
	r.mu.Unlock()

	r.Propose(kind, normalized, normalized)
	return normalized, true
}

// Propose stages an alias mapping for commit at run end, overwriting any
// earlier in-session proposal for the same kind+normalizedRaw (append in
// session, last Propose wins locally — the store itself resolves
// last-writer-wins across runs at Commit).
func (r *Registry) Propose(kind Kind, normalizedRaw, canonical string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := string(kind) + "\x00" + normalizedRaw
	r.pending[key] = pendingAlias{kind: kind, normalizedRaw: normalizedRaw, canonical: canonical}
	r.tableFor(kind)[normalizedRaw] = canonical
}

// Commit flushes every staged proposal to the store. Conflicts (another
// run updated the same key since Load) are returned for logging, not
// treated as errors — the run completes either way.
func (r *Registry) Commit(ctx context.Context) ([]Conflict, error) {
	r.mu.Lock()
	pending := make([]pendingAlias, 0, len(r.pending))
	for _, p := range r.pending {
		pending = append(pending, p)
	}
	r.mu.Unlock()

	var conflicts []Conflict
	for _, p := range pending {
		overwrote, err := r.store.Upsert(ctx, p.kind, p.normalizedRaw, p.canonical)
		if err != nil {
			return conflicts, err
		}
		if overwrote {
			conflicts = append(conflicts, Conflict{
				Kind:          p.kind,
				NormalizedRaw: p.normalizedRaw,
				AttemptedWith: p.canonical,
				ResolvedTo:    p.canonical,
			})
			slog.Warn("alias commit overwrote a concurrent update",
				"kind", p.kind, "normalized_raw", p.normalizedRaw, "canonical", p.canonical)
		}
	}
	return conflicts, nil
}

func (r *Registry) tableFor(kind Kind) map[string]string {
	if kind == KindProductArea {
		return r.product
	}
	return r.component
}
