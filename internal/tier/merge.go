package tier

import "sort"

// Merge coalesces ranges whose gap does not exceed threshold addresses.
// The input is sorted by (start, end) and swept once left to right; a range
// whose start is within threshold of the current interval's end extends it,
// anything further closes the interval and opens a new one. Overlapping and
// nested ranges are absorbed because the comparison is against the running
// end, not the previous start. The input slice's order is not preserved.
func Merge(ranges []Range, threshold uint64) []Range {
	if len(ranges) == 0 {
		return nil
	}

	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})

	merged := make([]Range, 0, len(ranges))
	cur := ranges[0]

	for _, r := range ranges[1:] {
		if r.Start <= cur.End || uint64(r.Start)-uint64(cur.End) <= threshold {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = r
	}

	return append(merged, cur)
}
