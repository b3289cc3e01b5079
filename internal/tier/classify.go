package tier

// Classifier routes raw (code, range) records into the three tier buckets.
// Tier-1 and tier-2 ranges are grouped per country; tier-3 ranges land in a
// single flat bucket and lose their country identity, though a per-country
// tally is kept so the erasure stays auditable.
type Classifier struct {
	cfg Config

	tier1 map[string][]Range
	tier2 map[string][]Range
	tier3 []Range

	tier3Tally map[string]int
	dropped    int
	total      int
}

// NewClassifier creates a classifier for the given tier configuration.
// The configuration must already be validated.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg:        cfg,
		tier1:      make(map[string][]Range, len(cfg.Tier1)),
		tier2:      make(map[string][]Range, len(cfg.Tier2)),
		tier3Tally: make(map[string]int),
	}
}

// Add classifies one record. A record with an empty code carries no region
// information and is dropped rather than folded into the catch-all tier.
// The caller guarantees r.Start <= r.End.
func (c *Classifier) Add(code string, r Range) {
	c.total++
	if code == "" {
		c.dropped++
		return
	}
	switch c.cfg.TierOf(code) {
	case Tier1:
		c.tier1[code] = append(c.tier1[code], r)
	case Tier2:
		c.tier2[code] = append(c.tier2[code], r)
	default:
		c.tier3 = append(c.tier3, r)
		c.tier3Tally[code]++
	}
}

// Total returns the number of records seen, dropped ones included.
func (c *Classifier) Total() int { return c.total }

// Dropped returns the number of records discarded for lacking a region code.
func (c *Classifier) Dropped() int { return c.dropped }

// Tier3Tally returns the per-country record counts absorbed into tier 3,
// captured before their identity is erased.
func (c *Classifier) Tier3Tally() map[string]int { return c.tier3Tally }
