package canon

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Export Service":   "export_service",
		"  Billing-API  ":  "billing_api",
		"foo__bar":         "foo_bar",
		"CSV/XLSX Export!": "csv_xlsx_export",
		"":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

type fakeStore struct {
	mu      sync.Mutex
	data    map[Kind]map[string]string
	commits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[Kind]map[string]string{
		KindComponent:   {},
		KindProductArea: {},
	}}
}

func (f *fakeStore) LoadAll(ctx context.Context, kind Kind) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.data[kind]))
	for k, v := range f.data[kind] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) Upsert(ctx context.Context, kind Kind, normalizedRaw, canonical string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	existing, ok := f.data[kind][normalizedRaw]
	f.data[kind][normalizedRaw] = canonical
	return ok && existing != canonical, nil
}

func TestRegistry_CanonicalizeUsesExistingAlias(t *testing.T) {
	store := newFakeStore()
	store.data[KindComponent]["export_svc"] = "export-service"
	r := New(store)
	require.NoError(t, r.Load(context.Background()))

	canonical, inferred := r.Canonicalize(KindComponent, "Export Svc")
	assert.Equal(t, "export-service", canonical)
	assert.False(t, inferred)
}

func TestRegistry_CanonicalizeInfersAndStagesNewMapping(t *testing.T) {
	store := newFakeStore()
	r := New(store)
	require.NoError(t, r.Load(context.Background()))

	canonical, inferred := r.Canonicalize(KindComponent, "New Widget")
	assert.Equal(t, "new_widget", canonical)
	assert.True(t, inferred)

	// Subsequent lookups in the same run see the staged mapping without a
	// store round-trip.
	canonical2, inferred2 := r.Canonicalize(KindComponent, "new widget")
	assert.Equal(t, "new_widget", canonical2)
	assert.False(t, inferred2)
}

func TestRegistry_CommitFlushesPendingProposals(t *testing.T) {
	store := newFakeStore()
	r := New(store)
	require.NoError(t, r.Load(context.Background()))

	r.Canonicalize(KindComponent, "Widget Exporter")
	conflicts, err := r.Commit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, 1, store.commits)
	assert.Equal(t, "widget_exporter", store.data[KindComponent]["widget_exporter"])
}

func TestRegistry_CommitReportsConcurrentOverwriteAsConflict(t *testing.T) {
	store := newFakeStore()
	r := New(store)
	require.NoError(t, r.Load(context.Background()))

	r.Propose(KindComponent, "shared_key", "my_run_canonical")

	// Simulate a concurrent run's write landing between this run's Load
	// and Commit.
	store.data[KindComponent]["shared_key"] = "other_runs_canonical"

	conflicts, err := r.Commit(context.Background())
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "shared_key", conflicts[0].NormalizedRaw)
	// Last-writer-wins: this run's Commit still lands its own value.
	assert.Equal(t, "my_run_canonical", store.data[KindComponent]["shared_key"])
}
