package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geotable-cli/internal/tier"
)

// tierFile is the YAML schema for a tier-definition override. Omitted
// fields keep their default, so a file may tune a single threshold without
// restating the country sets.
type tierFile struct {
	Tier1      []string `yaml:"tier1"`
	Tier2      []string `yaml:"tier2"`
	CatchAll   string   `yaml:"catch_all"`
	Thresholds struct {
		Tier1 *uint64 `yaml:"tier1"`
		Tier2 *uint64 `yaml:"tier2"`
		Tier3 *uint64 `yaml:"tier3"`
	} `yaml:"thresholds"`
}

// LoadTiers reads a tier-definition override file and applies it on top of
// the default tier configuration. The result is validated before use.
func LoadTiers(path string) (tier.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tier.Config{}, eris.Wrapf(err, "config: read tiers file %s", path)
	}

	var tf tierFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return tier.Config{}, eris.Wrap(err, "config: parse tiers file")
	}

	cfg := tier.Default()
	if tf.Tier1 != nil {
		cfg.Tier1 = toSet(tf.Tier1)
	}
	if tf.Tier2 != nil {
		cfg.Tier2 = toSet(tf.Tier2)
	}
	if tf.CatchAll != "" {
		cfg.CatchAll = tf.CatchAll
	}
	if tf.Thresholds.Tier1 != nil {
		cfg.Threshold1 = *tf.Thresholds.Tier1
	}
	if tf.Thresholds.Tier2 != nil {
		cfg.Threshold2 = *tf.Thresholds.Tier2
	}
	if tf.Thresholds.Tier3 != nil {
		cfg.Threshold3 = *tf.Thresholds.Tier3
	}

	if err := cfg.Validate(); err != nil {
		return tier.Config{}, eris.Wrapf(err, "config: tiers file %s", path)
	}

	return cfg, nil
}

func toSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
