package facematch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeRoll returns the comparison key for a roll number: trimmed,
// NFKC-normalized and case-folded, so "cs-01" and "CS-01" resolve to the same student.
func NormalizeRoll(roll string) string {
	roll = strings.TrimSpace(roll)
	roll = norm.NFKC.String(roll)
	return cases.Fold().String(roll)
}

// SameRoll reports whether two roll numbers refer to the same student.
func SameRoll(a, b string) bool {
	return NormalizeRoll(a) == NormalizeRoll(b)
}
