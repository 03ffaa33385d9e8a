package fulltext

import (
	"regexp"
	"strings"
)

var (
	// citationMarker matches bracketed reference numbers such as [1],
	// [42] or [123].
	citationMarker = regexp.MustCompile(`\[[0-9]{1,3}\]`)

	// inlineMath matches single-dollar inline LaTeX math.
	inlineMath = regexp.MustCompile(`\$[^$]+\$`)

	// controlChars matches C0 control characters and DEL, which PDF
	// extraction frequently leaks into text.
	controlChars = regexp.MustCompile("[\x00-\x1f\x7f]")

	// multiSpace collapses runs of whitespace.
	multiSpace = regexp.MustCompile(`\s+`)
)

// maxRunLength is the longest run of one repeated rune kept intact.
// Longer runs are a common symptom of corrupted PDF text streams and
// collapse to a single rune.
const maxRunLength = 20

// squashRepeats collapses runs of a repeated rune longer than
// maxRunLength down to one occurrence. RE2 has no backreferences, so
// this is a plain scan instead of a regexp.
func squashRepeats(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if run := j - i; run > maxRunLength {
			b.WriteRune(runes[i])
		} else {
			b.WriteString(string(runes[i:j]))
		}
		i = j
	}
	return b.String()
}

// Clean scrubs extracted paper text for embedding: citation markers,
// inline math markup and control characters are removed, corrupted
// repetitions squashed, and whitespace normalized.
func Clean(text string) string {
	text = citationMarker.ReplaceAllString(text, "")
	text = inlineMath.ReplaceAllString(text, "")
	text = controlChars.ReplaceAllString(text, " ")
	text = squashRepeats(text)
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
