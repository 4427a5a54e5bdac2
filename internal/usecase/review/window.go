package review

import "sort"

// BuildContextWindow expands a set of seed line numbers by the padding
// radius, clamps the result to [1, totalLines], deduplicates, sorts
// ascending, and truncates to maxLines.
//
// Truncation drops the highest-numbered lines first, so a capped window is
// always a coherent prefix of the full context.
func BuildContextWindow(seeds []int, radius, totalLines, maxLines int) []int {
	if totalLines <= 0 || len(seeds) == 0 {
		return nil
	}

	want := make(map[int]bool)
	for _, n := range seeds {
		lo := n - radius
		hi := n + radius
		if lo < 1 {
			lo = 1
		}
		if hi > totalLines {
			hi = totalLines
		}
		for i := lo; i <= hi; i++ {
			want[i] = true
		}
	}

	window := make([]int, 0, len(want))
	for n := range want {
		window = append(window, n)
	}
	sort.Ints(window)

	if maxLines > 0 && len(window) > maxLines {
		window = window[:maxLines]
	}

	return window
}
