package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierRouting(t *testing.T) {
	c := NewClassifier(Default())

	c.Add("CN", Range{10, 20})
	c.Add("CN", Range{30, 40})
	c.Add("DE", Range{50, 60})
	c.Add("BR", Range{70, 80})
	c.Add("AR", Range{90, 100})
	c.Add("", Range{110, 120})

	assert.Equal(t, []Range{{10, 20}, {30, 40}}, c.tier1["CN"])
	assert.Equal(t, []Range{{50, 60}}, c.tier2["DE"])
	assert.Equal(t, []Range{{70, 80}, {90, 100}}, c.tier3)

	assert.Equal(t, 6, c.Total())
	assert.Equal(t, 1, c.Dropped())
}

func TestClassifierEmptyCodeNotCatchAll(t *testing.T) {
	// An unresolved code means the region is unknown, not "other"; the
	// record must not leak into the tier-3 bucket.
	c := NewClassifier(Default())
	c.Add("", Range{1, 2})

	assert.Empty(t, c.tier3)
	assert.Equal(t, 1, c.Dropped())
}

func TestClassifierTier3Tally(t *testing.T) {
	c := NewClassifier(Default())
	c.Add("BR", Range{1, 2})
	c.Add("BR", Range{3, 4})
	c.Add("AR", Range{5, 6})

	assert.Equal(t, map[string]int{"BR": 2, "AR": 1}, c.Tier3Tally())
}

func TestClassifierExactlyOneBucket(t *testing.T) {
	cfg := Default()
	c := NewClassifier(cfg)

	codes := append(append(cfg.Codes1(), cfg.Codes2()...), "BR", "AR", "MX")
	for i, code := range codes {
		c.Add(code, Range{uint32(i * 10), uint32(i*10 + 5)})
	}

	var bucketed int
	for _, ranges := range c.tier1 {
		bucketed += len(ranges)
	}
	for _, ranges := range c.tier2 {
		bucketed += len(ranges)
	}
	bucketed += len(c.tier3)

	assert.Equal(t, len(codes), bucketed)
	assert.Zero(t, c.Dropped())
}
