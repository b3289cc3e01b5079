package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"AU", "CN", "HK", "JP", "KR", "NZ", "SG", "US"}, cfg.Codes1())
	assert.Equal(t, []string{"CA", "DE", "FR", "GB", "IN", "IT", "NL", "RU", "TW"}, cfg.Codes2())
	assert.Equal(t, "ZZ", cfg.CatchAll)
	assert.Equal(t, uint64(1), cfg.Threshold(Tier1))
	assert.Equal(t, uint64(262144), cfg.Threshold(Tier2))
	assert.Equal(t, uint64(16777216), cfg.Threshold(Tier3))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "code in both sets",
			mutate:  func(c *Config) { c.Tier2["CN"] = true },
			wantErr: "both tier sets",
		},
		{
			name:    "catch-all collides with tier-1",
			mutate:  func(c *Config) { c.CatchAll = "US" },
			wantErr: "collides",
		},
		{
			name:    "catch-all collides with tier-2",
			mutate:  func(c *Config) { c.CatchAll = "DE" },
			wantErr: "collides",
		},
		{
			name:    "empty catch-all",
			mutate:  func(c *Config) { c.CatchAll = "" },
			wantErr: "empty",
		},
		{
			name:    "lowercase code rejected",
			mutate:  func(c *Config) { c.Tier1["cn"] = true },
			wantErr: "invalid tier-1 code",
		},
		{
			name:    "three-letter catch-all rejected",
			mutate:  func(c *Config) { c.CatchAll = "ZZZ" },
			wantErr: "invalid catch-all",
		},
		{
			name:    "zero threshold rejected",
			mutate:  func(c *Config) { c.Threshold2 = 0 },
			wantErr: "thresholds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTierOf(t *testing.T) {
	cfg := Default()

	assert.Equal(t, Tier1, cfg.TierOf("JP"))
	assert.Equal(t, Tier2, cfg.TierOf("RU"))
	assert.Equal(t, Tier3, cfg.TierOf("BR"))
	assert.Equal(t, Tier3, cfg.TierOf("ZZ"))
}
