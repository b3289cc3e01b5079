package tier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleTagsAndSorts(t *testing.T) {
	c := NewClassifier(Default())
	c.Add("US", Range{5, 5})
	c.Add("BR", Range{100, 200})

	entries, stats, err := Assemble(context.Background(), c, 2)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Start: 5, End: 5, Code: "US"},
		{Start: 100, End: 200, Code: "ZZ"},
	}, entries)

	assert.Equal(t, []CodeStat{
		{Code: "US", Tier: Tier1, Raw: 1, Merged: 1},
		{Code: "ZZ", Tier: Tier3, Raw: 1, Merged: 1},
	}, stats)
}

func TestAssembleGlobalSortAcrossTiers(t *testing.T) {
	// Units are merged independently and interleave in address space; the
	// final table must still come out globally start-ascending.
	c := NewClassifier(Default())
	c.Add("US", Range{5000, 6000})
	c.Add("US", Range{9000, 9500})
	c.Add("DE", Range{100, 200})
	c.Add("DE", Range{700, 800})
	c.Add("BR", Range{3000, 3100})

	entries, _, err := Assemble(context.Background(), c, 4)
	require.NoError(t, err)
	require.Len(t, entries, 4) // DE's two ranges coalesce under threshold 262144

	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Start, entries[i].Start)
	}
	assert.Empty(t, CheckEntries(entries))
}

func TestAssembleAppliesTierThresholds(t *testing.T) {
	c := NewClassifier(Default())
	// Gap of 979 addresses: far beyond tier-1's threshold of 1, well within
	// tier-2's 262144.
	c.Add("JP", Range{10, 20})
	c.Add("JP", Range{1000, 1005})
	c.Add("GB", Range{200000, 200010})
	c.Add("GB", Range{201000, 201005})

	entries, stats, err := Assemble(context.Background(), c, 1)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Start: 10, End: 20, Code: "JP"},
		{Start: 1000, End: 1005, Code: "JP"},
		{Start: 200000, End: 201005, Code: "GB"},
	}, entries)

	assert.Equal(t, []CodeStat{
		{Code: "JP", Tier: Tier1, Raw: 2, Merged: 2},
		{Code: "GB", Tier: Tier2, Raw: 2, Merged: 1},
	}, stats)
}

func TestAssembleEmptyClassifier(t *testing.T) {
	entries, stats, err := Assemble(context.Background(), NewClassifier(Default()), 2)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, stats)
}

func TestCheckEntries(t *testing.T) {
	tests := []struct {
		name       string
		entries    []Entry
		violations int
	}{
		{
			name: "sorted disjoint table passes",
			entries: []Entry{
				{Start: 0, End: 10, Code: "US"},
				{Start: 11, End: 20, Code: "ZZ"},
				{Start: 100, End: 200, Code: "CN"},
			},
			violations: 0,
		},
		{
			name: "touching ranges overlap",
			entries: []Entry{
				{Start: 0, End: 10, Code: "US"},
				{Start: 10, End: 20, Code: "ZZ"},
			},
			violations: 1,
		},
		{
			name: "out of order reported",
			entries: []Entry{
				{Start: 100, End: 200, Code: "US"},
				{Start: 0, End: 10, Code: "ZZ"},
			},
			violations: 1,
		},
		{
			name:       "empty table passes",
			entries:    nil,
			violations: 0,
		},
		{
			name: "single entry passes",
			entries: []Entry{
				{Start: 0, End: 4294967295, Code: "ZZ"},
			},
			violations: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, CheckEntries(tt.entries), tt.violations)
		})
	}
}
