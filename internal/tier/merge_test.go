package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		ranges    []Range
		threshold uint64
		expected  []Range
	}{
		{
			name:      "gap at threshold merges, wide gap does not",
			ranges:    []Range{{10, 20}, {25, 30}, {1000, 1005}},
			threshold: 5,
			expected:  []Range{{10, 30}, {1000, 1005}},
		},
		{
			name:      "empty input",
			ranges:    nil,
			threshold: 1,
			expected:  nil,
		},
		{
			name:      "single range unchanged",
			ranges:    []Range{{42, 99}},
			threshold: 1,
			expected:  []Range{{42, 99}},
		},
		{
			name:      "adjacent ranges merge at threshold 1",
			ranges:    []Range{{10, 20}, {21, 30}},
			threshold: 1,
			expected:  []Range{{10, 30}},
		},
		{
			name:      "one-address gap stays split at threshold 1",
			ranges:    []Range{{10, 20}, {22, 30}},
			threshold: 1,
			expected:  []Range{{10, 20}, {22, 30}},
		},
		{
			name:      "gap one past threshold stays split",
			ranges:    []Range{{10, 20}, {27, 30}},
			threshold: 6,
			expected:  []Range{{10, 20}, {27, 30}},
		},
		{
			name:      "nested range absorbed",
			ranges:    []Range{{10, 100}, {20, 30}},
			threshold: 1,
			expected:  []Range{{10, 100}},
		},
		{
			name:      "overlapping ranges merge",
			ranges:    []Range{{10, 20}, {15, 25}},
			threshold: 1,
			expected:  []Range{{10, 25}},
		},
		{
			name:      "unsorted input sorted before sweep",
			ranges:    []Range{{1000, 1005}, {10, 20}, {25, 30}},
			threshold: 5,
			expected:  []Range{{10, 30}, {1000, 1005}},
		},
		{
			name:      "equal starts tie-broken by end",
			ranges:    []Range{{10, 50}, {10, 20}},
			threshold: 1,
			expected:  []Range{{10, 50}},
		},
		{
			name:      "full address space endpoints",
			ranges:    []Range{{0, 10}, {4294967290, 4294967295}},
			threshold: 1,
			expected:  []Range{{0, 10}, {4294967290, 4294967295}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]Range(nil), tt.ranges...)
			assert.Equal(t, tt.expected, Merge(in, tt.threshold))
		})
	}
}

func TestMergeGapBoundary(t *testing.T) {
	// gap == threshold merges, gap == threshold+1 does not.
	atBoundary := Merge([]Range{{10, 20}, {26, 30}}, 6)
	assert.Equal(t, []Range{{10, 30}}, atBoundary)

	pastBoundary := Merge([]Range{{10, 20}, {27, 30}}, 6)
	assert.Equal(t, []Range{{10, 20}, {27, 30}}, pastBoundary)
}

func TestMergeIdempotent(t *testing.T) {
	thresholds := []uint64{1, 5, 262144, 16777216}
	input := []Range{{10, 20}, {25, 30}, {1000, 1005}, {500, 600}, {590, 700}}

	for _, threshold := range thresholds {
		once := Merge(append([]Range(nil), input...), threshold)
		twice := Merge(append([]Range(nil), once...), threshold)
		assert.Equal(t, once, twice, "threshold %d", threshold)
	}
}

func TestMergeThresholdMonotonic(t *testing.T) {
	input := []Range{
		{0, 100}, {150, 200}, {500, 600}, {10000, 10100},
		{300000, 300100}, {20000000, 20000100}, {90, 120},
	}

	prev := len(input) + 1
	for _, threshold := range []uint64{1, 50, 400, 10000, 300000, 20000000} {
		merged := Merge(append([]Range(nil), input...), threshold)
		assert.LessOrEqual(t, len(merged), prev, "threshold %d", threshold)
		prev = len(merged)
	}
}

// covered reports whether addr falls inside any of the ranges.
func covered(ranges []Range, addr uint32) bool {
	for _, r := range ranges {
		if addr >= r.Start && addr <= r.End {
			return true
		}
	}
	return false
}

func TestMergeNeverDropsCoverage(t *testing.T) {
	input := []Range{{10, 20}, {25, 30}, {1000, 1005}, {500, 600}, {590, 700}}

	for _, threshold := range []uint64{1, 5, 1000} {
		merged := Merge(append([]Range(nil), input...), threshold)
		for _, r := range input {
			for addr := r.Start; addr <= r.End; addr++ {
				require.True(t, covered(merged, addr),
					"threshold %d dropped address %d", threshold, addr)
			}
		}
	}
}

func TestMergeConservesCoverageAtThresholdOne(t *testing.T) {
	// Threshold 1 only joins touching or directly adjacent ranges, so the
	// merged union is exactly the input union: no address appears or
	// disappears.
	input := []Range{{10, 20}, {21, 30}, {15, 25}, {40, 45}}
	merged := Merge(append([]Range(nil), input...), 1)

	for addr := uint32(0); addr <= 60; addr++ {
		assert.Equal(t, covered(input, addr), covered(merged, addr), "address %d", addr)
	}
}
