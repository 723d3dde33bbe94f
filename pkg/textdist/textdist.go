// Package textdist provides normalized string similarity for noisy
// recognized text.
//
// Ratio is what the verification layer thresholds against: it tolerates
// dropped or garbled characters from optical recognition better than exact
// or token-based comparison would.
package textdist

import "strings"

// Ratio returns a similarity score in [0, 1] between a and b.
//
// The score is 2*LCS(a,b) / (len(a)+len(b)) computed over the
// whitespace-trimmed inputs, where LCS is the longest common subsequence
// length in runes. It is symmetric, 1 for identical non-empty strings, and
// 0 whenever either side trims to empty.
func Ratio(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	ra := []rune(a)
	rb := []rune(b)
	common := lcsLen(ra, rb)
	return 2 * float64(common) / float64(len(ra)+len(rb))
}

// lcsLen computes the longest common subsequence length with a rolling
// single-row table (O(min(n,m)) memory).
func lcsLen(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
