// Package compare implements output comparison for judged submissions.
package compare

import "strings"

// Outputs reports whether actual matches expected under relaxed
// whitespace rules: both are split into lines, trailing blank lines are
// ignored, the line counts must match, and each line pair must be equal
// after stripping leading and trailing whitespace. Interior whitespace
// is significant.
func Outputs(actual, expected string) bool {
	a := splitLines(actual)
	b := splitLines(expected)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}

// splitLines splits on newlines and drops trailing lines that are empty
// after trimming, so a missing or extra final newline never flips a
// verdict.
func splitLines(s string) []string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
