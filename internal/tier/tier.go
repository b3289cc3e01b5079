// Package tier implements the tiered interval-coalescing core: classifying
// address ranges into precision tiers, merging nearby ranges within each
// tier, and assembling the merged lists into one sorted disjoint table.
package tier

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Tier identifies one of the three precision levels.
type Tier int

const (
	// Tier1 tracks its countries individually and only merges ranges that
	// touch or directly abut.
	Tier1 Tier = 1
	// Tier2 tracks its countries individually with a moderate gap tolerance.
	Tier2 Tier = 2
	// Tier3 collapses every remaining country into a single catch-all code
	// with an aggressive gap tolerance.
	Tier3 Tier = 3
)

// Range is a closed interval [Start, End] of IPv4 addresses.
type Range struct {
	Start uint32
	End   uint32
}

// Entry is one row of the final table: a disjoint range plus its region code.
type Entry struct {
	Start uint32
	End   uint32
	Code  string
}

// Config defines the tier membership sets and merge thresholds. Thresholds
// are in address-count units: a gap of exactly Threshold addresses between
// two ranges still merges.
type Config struct {
	Tier1      map[string]bool
	Tier2      map[string]bool
	CatchAll   string
	Threshold1 uint64
	Threshold2 uint64
	Threshold3 uint64
}

// Default returns the production tier configuration: eight high-precision
// countries, nine medium-precision countries, everything else folded into ZZ.
func Default() Config {
	return Config{
		Tier1:      codeSet("AU", "CN", "HK", "JP", "KR", "NZ", "SG", "US"),
		Tier2:      codeSet("CA", "DE", "FR", "GB", "IN", "IT", "NL", "RU", "TW"),
		CatchAll:   "ZZ",
		Threshold1: 1,
		Threshold2: 262144,
		Threshold3: 16777216,
	}
}

func codeSet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// Threshold returns the merge threshold for the given tier.
func (c Config) Threshold(t Tier) uint64 {
	switch t {
	case Tier1:
		return c.Threshold1
	case Tier2:
		return c.Threshold2
	default:
		return c.Threshold3
	}
}

// TierOf returns the tier a region code classifies into.
func (c Config) TierOf(code string) Tier {
	if c.Tier1[code] {
		return Tier1
	}
	if c.Tier2[code] {
		return Tier2
	}
	return Tier3
}

// Codes1 returns the tier-1 codes in sorted order.
func (c Config) Codes1() []string { return sortedCodes(c.Tier1) }

// Codes2 returns the tier-2 codes in sorted order.
func (c Config) Codes2() []string { return sortedCodes(c.Tier2) }

func sortedCodes(set map[string]bool) []string {
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Validate checks the structural invariants of a tier configuration:
// the two membership sets are disjoint, the catch-all code collides with
// neither set, codes are two-letter uppercase, and thresholds are positive.
func (c Config) Validate() error {
	if c.CatchAll == "" {
		return eris.New("tier: catch-all code is empty")
	}
	if !validCode(c.CatchAll) {
		return eris.Errorf("tier: invalid catch-all code %q", c.CatchAll)
	}
	for code := range c.Tier1 {
		if !validCode(code) {
			return eris.Errorf("tier: invalid tier-1 code %q", code)
		}
		if c.Tier2[code] {
			return eris.Errorf("tier: code %q appears in both tier sets", code)
		}
		if code == c.CatchAll {
			return eris.Errorf("tier: catch-all code %q collides with tier-1", code)
		}
	}
	for code := range c.Tier2 {
		if !validCode(code) {
			return eris.Errorf("tier: invalid tier-2 code %q", code)
		}
		if code == c.CatchAll {
			return eris.Errorf("tier: catch-all code %q collides with tier-2", code)
		}
	}
	if c.Threshold1 == 0 || c.Threshold2 == 0 || c.Threshold3 == 0 {
		return eris.New("tier: thresholds must be positive")
	}
	return nil
}

func validCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := range len(code) {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
