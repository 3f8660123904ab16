// Package indexing cleans raw record content before it reaches the embedder.
// The spectral memory graph embeds whatever text a caller hands it, so a
// stray control character or UTF-16 surrogate leaking in from a log scraper
// or a bad encoding conversion would otherwise end up baked into a note's
// embedding and context snippet.
package indexing

import "strings"

// SanitizeText replaces control characters (other than tab, newline, and
// carriage return) with a space, and replaces lone UTF-16 surrogate code
// points with the Unicode replacement character. Both are symptoms of text
// that passed through a lossy encoding conversion before reaching ingest.
func SanitizeText(text string) string {
	if len(text) == 0 {
		return text
	}

	var result strings.Builder
	result.Grow(len(text))

	for _, r := range text {
		if (r >= 0x00 && r <= 0x08) || r == 0x0B || r == 0x0C || (r >= 0x0E && r <= 0x1F) {
			result.WriteRune(' ')
			continue
		}
		if r >= 0xD800 && r <= 0xDFFF {
			result.WriteRune('�')
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}
