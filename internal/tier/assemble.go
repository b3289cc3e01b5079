package tier

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// CodeStat records the interval counts for one merge unit, before and after
// coalescing. Tier 3 reports as a single unit under the catch-all code.
type CodeStat struct {
	Code   string
	Tier   Tier
	Raw    int
	Merged int
}

// mergeUnit is one independent merge: a code's ranges plus its threshold.
type mergeUnit struct {
	code   string
	tier   Tier
	ranges []Range
}

// Assemble merges every bucket with its tier threshold and flattens the
// results into one globally sorted table. Merges are independent per unit,
// so they fan out across at most workers goroutines; assembly waits for all
// of them before sorting. The final sort is required because units are
// merged in isolation and interleave in address space.
func Assemble(ctx context.Context, c *Classifier, workers int) ([]Entry, []CodeStat, error) {
	if workers < 1 {
		workers = 1
	}

	var units []mergeUnit
	for _, code := range c.cfg.Codes1() {
		if len(c.tier1[code]) == 0 {
			continue
		}
		units = append(units, mergeUnit{code: code, tier: Tier1, ranges: c.tier1[code]})
	}
	for _, code := range c.cfg.Codes2() {
		if len(c.tier2[code]) == 0 {
			continue
		}
		units = append(units, mergeUnit{code: code, tier: Tier2, ranges: c.tier2[code]})
	}
	if len(c.tier3) > 0 {
		units = append(units, mergeUnit{code: c.cfg.CatchAll, tier: Tier3, ranges: c.tier3})
	}

	merged := make([][]Range, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			merged[i] = Merge(u.ranges, c.cfg.Threshold(u.tier))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var total int
	for _, m := range merged {
		total += len(m)
	}

	entries := make([]Entry, 0, total)
	stats := make([]CodeStat, 0, len(units))
	for i, u := range units {
		for _, r := range merged[i] {
			entries = append(entries, Entry{Start: r.Start, End: r.End, Code: u.code})
		}
		stats = append(stats, CodeStat{
			Code:   u.code,
			Tier:   u.tier,
			Raw:    len(u.ranges),
			Merged: len(merged[i]),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Start != entries[j].Start {
			return entries[i].Start < entries[j].Start
		}
		return entries[i].End < entries[j].End
	})

	return entries, stats, nil
}

// Overlap is a pair of adjacent table entries violating the sorted-disjoint
// invariant.
type Overlap struct {
	A Entry
	B Entry
}

// CheckEntries verifies the table invariant consumers rely on for binary
// search: starts never decrease and adjacent ranges never overlap. Found
// violations are returned for reporting; they are never repaired here,
// since picking a winner would silently mislocate addresses.
func CheckEntries(entries []Entry) []Overlap {
	var violations []Overlap
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Start < prev.Start || cur.Start <= prev.End {
			violations = append(violations, Overlap{A: prev, B: cur})
		}
	}
	return violations
}
