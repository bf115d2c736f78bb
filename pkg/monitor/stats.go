package monitor

import (
	"sync/atomic"

	"primegap/pkg/common"
)

type PredictionStats struct {
	SieveCount   uint64
	EntropyCount uint64
	InvalidCount uint64
	CheckedCount uint64 // predictions with a known actual gap
	CoveredCount uint64 // ... of which predicted >= actual
}

func NewPredictionStats() *PredictionStats {
	return &PredictionStats{}
}

func (ps *PredictionStats) RecordPrediction(regime common.Regime) {
	if regime == common.RegimeSieve {
		atomic.AddUint64(&ps.SieveCount, 1)
	} else {
		atomic.AddUint64(&ps.EntropyCount, 1)
	}
}

func (ps *PredictionStats) RecordInvalid() {
	atomic.AddUint64(&ps.InvalidCount, 1)
}

// RecordOutcome counts a prediction against its true gap. Unknown gaps are ignored.
func (ps *PredictionStats) RecordOutcome(rec common.Record) {
	if !rec.HasActual() {
		return
	}
	atomic.AddUint64(&ps.CheckedCount, 1)
	if rec.Covered {
		atomic.AddUint64(&ps.CoveredCount, 1)
	}
}

// GetCoverageRatio is the share of checked predictions that bounded the real gap.
func (ps *PredictionStats) GetCoverageRatio() float64 {
	checked := atomic.LoadUint64(&ps.CheckedCount)
	covered := atomic.LoadUint64(&ps.CoveredCount)

	if checked == 0 {
		return 0.0
	}
	return float64(covered) / float64(checked)
}

type Snapshot struct {
	Sieve    uint64  `json:"sieve"`
	Entropy  uint64  `json:"entropy"`
	Invalid  uint64  `json:"invalid"`
	Checked  uint64  `json:"checked"`
	Covered  uint64  `json:"covered"`
	Coverage float64 `json:"coverage"`
}

func (ps *PredictionStats) Snapshot() Snapshot {
	return Snapshot{
		Sieve:    atomic.LoadUint64(&ps.SieveCount),
		Entropy:  atomic.LoadUint64(&ps.EntropyCount),
		Invalid:  atomic.LoadUint64(&ps.InvalidCount),
		Checked:  atomic.LoadUint64(&ps.CheckedCount),
		Covered:  atomic.LoadUint64(&ps.CoveredCount),
		Coverage: ps.GetCoverageRatio(),
	}
}
