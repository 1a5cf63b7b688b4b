package pmreview

import "fmt"

// ValidatePartition enforces the split decision's two invariants: every
// conversation in the original candidate appears in exactly one subgroup.
// Duplicate assignments resolve first-wins — a conversation ID already
// placed in an earlier subgroup is dropped from any later one, and the
// count of such drops is returned. Any conversation ID missing from every
// subgroup is appended as its own singleton, so coverage is always
// complete. Subgroups left empty by dedup are dropped. Returns an error only
// if the resolved partition is empty, which happens only when
// conversationIDs is empty (degenerate input).
func ValidatePartition(subgroups [][]string, conversationIDs []string) ([][]string, int, error) {
	want := make(map[string]bool, len(conversationIDs))
	for _, id := range conversationIDs {
		want[id] = true
	}

	seen := make(map[string]bool, len(conversationIDs))
	duplicates := 0
	resolved := make([][]string, 0, len(subgroups))

	for _, group := range subgroups {
		var kept []string
		for _, id := range group {
			if !want[id] {
				continue // not part of this candidate, ignore
			}
			if seen[id] {
				duplicates++
				continue
			}
			seen[id] = true
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			resolved = append(resolved, kept)
		}
	}

	var missing []string
	for _, id := range conversationIDs {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	for _, id := range missing {
		resolved = append(resolved, []string{id})
	}

	if len(resolved) == 0 {
		return nil, 0, fmt.Errorf("pmreview: partition covers no conversations")
	}

	return resolved, duplicates, nil
}
