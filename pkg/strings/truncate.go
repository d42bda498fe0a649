package strings

import (
	"strings"
)

// DefaultMessageMaxLen is the width failure messages are folded to in
// rendered run summaries.
const DefaultMessageMaxLen = 72

// MinOneLineLen is the smallest useful maxLen for OneLine. Anything shorter
// leaves no room for content ahead of the ellipsis.
const MinOneLineLen = 4

// OneLine collapses s to a single line no longer than maxLen runes,
// appending "..." when content was cut. Whitespace runs, including the
// newlines multi-line process output carries, become single spaces.
//
// Slicing is rune-based so multi-byte characters are never split mid-rune.
func OneLine(s string, maxLen int) string {
	if maxLen < MinOneLineLen {
		maxLen = MinOneLineLen
	}

	// strings.Fields splits on any whitespace, so one join normalizes
	// newlines, tabs and repeated spaces at once.
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
