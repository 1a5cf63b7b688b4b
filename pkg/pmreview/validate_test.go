package pmreview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePartition_NoConflicts(t *testing.T) {
	resolved, dups, err := ValidatePartition(
		[][]string{{"a", "b"}, {"c"}},
		[]string{"a", "b", "c"},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, dups)
	assert.ElementsMatch(t, [][]string{{"a", "b"}, {"c"}}, resolved)
}

func TestValidatePartition_FirstWinsOnDuplicateAssignment(t *testing.T) {
	resolved, dups, err := ValidatePartition(
		[][]string{{"a", "b"}, {"b", "c"}},
		[]string{"a", "b", "c"},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, dups)

	seen := map[string]bool{}
	for _, g := range resolved {
		for _, id := range g {
			require.False(t, seen[id], "id %s assigned twice", id)
			seen[id] = true
		}
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
	assert.True(t, seen["c"])

	// b must stay in its first group, not the second.
	for _, g := range resolved {
		if contains(g, "b") {
			assert.True(t, contains(g, "a"), "b should have stayed with a, the first group")
		}
	}
}

func TestValidatePartition_MissingConversationBecomesSingleton(t *testing.T) {
	resolved, dups, err := ValidatePartition(
		[][]string{{"a"}},
		[]string{"a", "b"},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, dups)
	assert.ElementsMatch(t, [][]string{{"a"}, {"b"}}, resolved)
}

func TestValidatePartition_IgnoresForeignIDs(t *testing.T) {
	resolved, dups, err := ValidatePartition(
		[][]string{{"a", "zzz"}},
		[]string{"a"},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, dups)
	assert.Equal(t, [][]string{{"a"}}, resolved)
}

func TestValidatePartition_EmptyInputErrors(t *testing.T) {
	_, _, err := ValidatePartition(nil, nil)
	assert.Error(t, err)
}

func TestValidatePartition_FullCoverageEvenWithHeavyDuplication(t *testing.T) {
	resolved, dups, err := ValidatePartition(
		[][]string{{"a", "b", "c"}, {"a", "b"}, {"a"}},
		[]string{"a", "b", "c"},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, dups)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, resolved)
}

func contains(group []string, id string) bool {
	for _, g := range group {
		if g == id {
			return true
		}
	}
	return false
}
