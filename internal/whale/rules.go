package whale

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Rules holds the thresholds the detector compares market metrics against.
// Ratios and changes are percentages.
type Rules struct {
	HighVolumeRatio   float64 `yaml:"high_volume_ratio" default:"15"`
	SpikeChange1h     float64 `yaml:"spike_change_1h" default:"5"`
	SpikeVolumeRatio  float64 `yaml:"spike_volume_ratio" default:"10"`
	ATHProximity      float64 `yaml:"ath_proximity" default:"95"`
	ATHVolumeRatio    float64 `yaml:"ath_volume_ratio" default:"12"`
	VolatilityDivisor float64 `yaml:"volatility_divisor" default:"3"`

	// Confidence scoring inputs are fractions, not percentages.
	ConfidenceBase       float64 `yaml:"confidence_base" default:"0.5"`
	ConfidenceHighVolume float64 `yaml:"confidence_high_volume" default:"0.15"`
	ConfidenceMidVolume  float64 `yaml:"confidence_mid_volume" default:"0.08"`
	ConfidenceBigMove    float64 `yaml:"confidence_big_move" default:"10"`
	ConfidenceMidMove    float64 `yaml:"confidence_mid_move" default:"5"`

	OutlierThreshold  float64 `yaml:"outlier_threshold" default:"0.6"`
	OutlierMaxResults int     `yaml:"outlier_max_results" default:"5"`
}

// DefaultRules returns the built-in thresholds.
func DefaultRules() Rules {
	var r Rules
	if err := defaults.Set(&r); err != nil {
		panic(fmt.Sprintf("whale: default rules: %v", err))
	}
	return r
}

// LoadRules reads thresholds from a YAML file. Keys missing from the file keep
// their defaults. An empty path returns DefaultRules.
func LoadRules(path string) (Rules, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read whale rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse whale rules: %w", err)
	}
	if err := defaults.Set(&r); err != nil {
		return Rules{}, fmt.Errorf("apply whale rule defaults: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

func (r Rules) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"high_volume_ratio", r.HighVolumeRatio},
		{"spike_change_1h", r.SpikeChange1h},
		{"spike_volume_ratio", r.SpikeVolumeRatio},
		{"ath_proximity", r.ATHProximity},
		{"ath_volume_ratio", r.ATHVolumeRatio},
		{"volatility_divisor", r.VolatilityDivisor},
		{"confidence_base", r.ConfidenceBase},
		{"outlier_threshold", r.OutlierThreshold},
	}
	for _, c := range checks {
		if c.v <= 0 {
			return fmt.Errorf("whale rule %s must be positive, got %v", c.name, c.v)
		}
	}
	if r.ConfidenceBase > 1 {
		return fmt.Errorf("whale rule confidence_base must be at most 1, got %v", r.ConfidenceBase)
	}
	if r.OutlierThreshold >= 1 {
		return fmt.Errorf("whale rule outlier_threshold must be below 1, got %v", r.OutlierThreshold)
	}
	return nil
}
