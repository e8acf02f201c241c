package report

import (
	"strings"
)

// Diff produces a minimal line diff between two texts: unchanged lines
// prefixed with two spaces, removals with "- ", additions with "+ ".
func Diff(before, after string) string {
	if before == after {
		return ""
	}

	a := strings.Split(before, "\n")
	b := strings.Split(after, "\n")

	var sb strings.Builder
	for _, op := range diffOps(a, b) {
		sb.WriteString(op)
		sb.WriteByte('\n')
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// diffOps computes diff lines via a longest-common-subsequence table.
func diffOps(a, b []string) []string {
	// lcs[i][j] = LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			ops = append(ops, "  "+a[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, "- "+a[i])
			i++
		default:
			ops = append(ops, "+ "+b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		ops = append(ops, "- "+a[i])
	}
	for ; j < len(b); j++ {
		ops = append(ops, "+ "+b[j])
	}
	return ops
}
