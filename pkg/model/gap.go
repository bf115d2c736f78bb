package model

import (
	"errors"
	"fmt"
	"math"

	"primegap/pkg/common"
)

// ErrInvalidArgument is returned for inputs outside the predictor's domain
// (index < 1, value < 2) and for calibrations that drive the raw magnitude out of range.
var ErrInvalidArgument = errors.New("invalid argument")

// maxRaw is 2^63: every float64 below it converts to int without overflow.
const maxRaw = 1 << 63

type GapPrediction struct {
	Raw    float64       `json:"raw"`
	Gap    int           `json:"predicted_gap"`
	Regime common.Regime `json:"regime"`
}

// GapModel 分段预测器：阈值选择分支，再取整为 >= 2 的偶数
type GapModel struct {
	cal     Calibration
	sieve   Formula
	entropy Formula
}

func NewGapModel(cal Calibration) (*GapModel, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &GapModel{
		cal:     cal,
		sieve:   sieveFormulas[cal.Sieve],
		entropy: entropyFormulas[cal.Entropy],
	}, nil
}

func (m *GapModel) Calibration() Calibration {
	return m.cal
}

func (m *GapModel) Predict(index int, value int64) (int, error) {
	p, err := m.Observe(common.PrimeObservation{Index: index, Value: value})
	if err != nil {
		return 0, err
	}
	return p.Gap, nil
}

func (m *GapModel) Observe(obs common.PrimeObservation) (GapPrediction, error) {
	if obs.Index < 1 {
		return GapPrediction{}, fmt.Errorf("%w: index %d < 1", ErrInvalidArgument, obs.Index)
	}
	if obs.Value < 2 {
		return GapPrediction{}, fmt.Errorf("%w: value %d < 2", ErrInvalidArgument, obs.Value)
	}

	regime := m.cal.Threshold.Select(obs)
	x := float64(obs.Value)

	var raw float64
	if regime == common.RegimeSieve {
		raw = m.sieve(x, m.cal)
	} else {
		raw = m.entropy(x, m.cal)
	}

	if !isFinite(raw) || raw >= maxRaw {
		return GapPrediction{}, fmt.Errorf("%w: %s magnitude %v out of range for %s under %q",
			ErrInvalidArgument, regime, raw, obs, m.cal.Name)
	}

	return GapPrediction{Raw: raw, Gap: EvenGap(raw), Regime: regime}, nil
}

// EvenGap floors raw, clamps it to 2 and drops odd results by one.
func EvenGap(raw float64) int {
	f := math.Floor(raw)
	if !(f >= 2) { // also catches NaN
		return 2
	}
	g := int(f)
	if g%2 != 0 {
		g--
	}
	return g
}
