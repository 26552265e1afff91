package textdiff

// Ratio is a Ratcliff/Obershelp similarity score in [0,1]: twice the number
// of matching characters over the total length. Matching characters are
// counted by recursively splitting around the longest common substring,
// which keeps the score identical across runs for the same inputs.
func Ratio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingRunes(ar, br)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	i, j, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingRunes(a[:i], b[:j]) +
		matchingRunes(a[i+size:], b[j+size:])
}

// longestCommonBlock finds the longest common substring of a and b,
// preferring the earliest position in a, then in b, on ties.
func longestCommonBlock(a, b []rune) (bestI, bestJ, bestSize int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// lengths[j] is the match length ending at (i-1, j-1) from the
	// previous row of the implicit DP table.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > bestSize {
					bestSize = cur[j+1]
					bestI = i - bestSize + 1
					bestJ = j - bestSize + 1
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, bestSize
}
