package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"primegap/pkg/common"
)

type ThresholdKind string

const (
	ThresholdIndex      ThresholdKind = "index"
	ThresholdVolatility ThresholdKind = "volatility"
)

// DefaultBreakpoint is the prime index where the sieve field hands over to the entropy field.
const DefaultBreakpoint = 400

// Threshold is the decision boundary between the two regimes. An index threshold keeps
// the sieve formula for index <= Index; a volatility threshold keeps it while 1/value > Volatility.
type Threshold struct {
	Kind       ThresholdKind `yaml:"kind" json:"kind"`
	Index      int           `yaml:"index,omitempty" json:"index,omitempty"`
	Volatility float64       `yaml:"volatility,omitempty" json:"volatility,omitempty"`
}

func (t Threshold) Select(obs common.PrimeObservation) common.Regime {
	switch t.Kind {
	case ThresholdVolatility:
		if 1.0/float64(obs.Value) > t.Volatility {
			return common.RegimeSieve
		}
	default:
		if obs.Index <= t.Index {
			return common.RegimeSieve
		}
	}
	return common.RegimeEntropy
}

// Calibration is a named coefficient set plus the formula chosen for each regime.
// Values are copied around, never shared by pointer, so a Calibration stays immutable once built.
type Calibration struct {
	Name        string    `yaml:"name" json:"name"`
	RootScaling float64   `yaml:"root_scaling" json:"root_scaling"`
	Correction  float64   `yaml:"correction" json:"correction"`
	Threshold   Threshold `yaml:"threshold" json:"threshold"`
	Sieve       string    `yaml:"sieve" json:"sieve"`
	Entropy     string    `yaml:"entropy" json:"entropy"`
}

func (c Calibration) Validate() error {
	if c.Name == "" {
		return errors.New("calibration: empty name")
	}
	if !isFinite(c.RootScaling) || !isFinite(c.Correction) {
		return fmt.Errorf("calibration %q: coefficients must be finite", c.Name)
	}
	switch c.Threshold.Kind {
	case ThresholdIndex:
		if c.Threshold.Index < 1 {
			return fmt.Errorf("calibration %q: index threshold %d < 1", c.Name, c.Threshold.Index)
		}
	case ThresholdVolatility:
		v := c.Threshold.Volatility
		if !isFinite(v) || v <= 0 || v > 1 {
			return fmt.Errorf("calibration %q: volatility threshold %v outside (0, 1]", c.Name, v)
		}
	default:
		return fmt.Errorf("calibration %q: unknown threshold kind %q", c.Name, c.Threshold.Kind)
	}
	if _, ok := sieveFormulas[c.Sieve]; !ok {
		return fmt.Errorf("calibration %q: unknown sieve strategy %q", c.Name, c.Sieve)
	}
	if _, ok := entropyFormulas[c.Entropy]; !ok {
		return fmt.Errorf("calibration %q: unknown entropy strategy %q", c.Name, c.Entropy)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

const (
	PresetClosure  = "closure"
	PresetSieveV2  = "sieve-v2"
	PresetLGOModel = "lgo-model"
)

// DefaultCalibration is used when the config names none.
const DefaultCalibration = PresetClosure

// Closure: sqrt(2) growth, geometric closure correction 1/pi^4 - e/pi^4.5.
func Closure() Calibration {
	return Calibration{
		Name:        PresetClosure,
		RootScaling: math.Sqrt2,
		Correction:  1/math.Pow(math.Pi, 4) - math.E/math.Pow(math.Pi, 4.5),
		Threshold:   Threshold{Kind: ThresholdIndex, Index: DefaultBreakpoint},
		Sieve:       StrategySubtractive,
		Entropy:     StrategyLogLog,
	}
}

// SieveV2: sqrt(2) growth, plain 1/pi^4 correction.
func SieveV2() Calibration {
	return Calibration{
		Name:        PresetSieveV2,
		RootScaling: math.Sqrt2,
		Correction:  1 / math.Pow(math.Pi, 4),
		Threshold:   Threshold{Kind: ThresholdIndex, Index: DefaultBreakpoint},
		Sieve:       StrategySubtractive,
		Entropy:     StrategyLogLog,
	}
}

// LGOModel switches on volatility 1/value against 0.0025 (value 400) and uses
// the additive sieve and root-scaled entropy formulas.
func LGOModel() Calibration {
	return Calibration{
		Name:        PresetLGOModel,
		RootScaling: 0.844,
		Correction:  0.18,
		Threshold:   Threshold{Kind: ThresholdVolatility, Volatility: 0.0025},
		Sieve:       StrategyAdditive,
		Entropy:     StrategyRoot,
	}
}

var presets = map[string]func() Calibration{
	PresetClosure:  Closure,
	PresetSieveV2:  SieveV2,
	PresetLGOModel: LGOModel,
}

func Preset(name string) (Calibration, bool) {
	fn, ok := presets[name]
	if !ok {
		return Calibration{}, false
	}
	return fn(), true
}

// Presets returns every built-in calibration sorted by name.
func Presets() []Calibration {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Calibration, 0, len(names))
	for _, name := range names {
		out = append(out, presets[name]())
	}
	return out
}
