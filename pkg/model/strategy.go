package model

import (
	"math"
	"sort"
)

const (
	StrategySubtractive = "subtractive"
	StrategyAdditive    = "additive"
	StrategyLogLog      = "loglog"
	StrategyRoot        = "root"
)

// Formula maps a prime value to the raw (unrounded) gap magnitude under a calibration.
type Formula func(value float64, c Calibration) float64

// Phi 基础对数量级 ln(value)^2
func Phi(value float64) float64 {
	l := math.Log(value)
	return l * l
}

// SubtractiveSieve: C_root * Phi - C_add * value
func SubtractiveSieve(value float64, c Calibration) float64 {
	return c.RootScaling*Phi(value) - c.Correction*value
}

// AdditiveSieve: Phi + C_add * Phi
func AdditiveSieve(value float64, c Calibration) float64 {
	phi := Phi(value)
	return phi + c.Correction*phi
}

// LogLogEntropy: C_root * ln(value) * ln(ln(value)).
// ln(ln(2)) is negative; the clamp in EvenGap absorbs it.
func LogLogEntropy(value float64, c Calibration) float64 {
	l := math.Log(value)
	return c.RootScaling * l * math.Log(l)
}

// RootEntropy: C_root * sqrt(Phi)
func RootEntropy(value float64, c Calibration) float64 {
	return c.RootScaling * math.Sqrt(Phi(value))
}

var sieveFormulas = map[string]Formula{
	StrategySubtractive: SubtractiveSieve,
	StrategyAdditive:    AdditiveSieve,
}

var entropyFormulas = map[string]Formula{
	StrategyLogLog: LogLogEntropy,
	StrategyRoot:   RootEntropy,
}

func SieveStrategies() []string   { return sortedKeys(sieveFormulas) }
func EntropyStrategies() []string { return sortedKeys(entropyFormulas) }

func sortedKeys(m map[string]Formula) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
