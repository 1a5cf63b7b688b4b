package canon

import "strings"

// Normalize collapses a raw component/product-area string to the
// registry's lookup key: lowercase, non-alphanumerics underscored,
// repeated underscores collapsed, leading/trailing underscores trimmed.
func Normalize(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
