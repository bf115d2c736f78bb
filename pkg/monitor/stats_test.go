package monitor

import (
	"sync"
	"testing"

	"primegap/pkg/common"
)

func TestPredictionStats(t *testing.T) {
	ps := NewPredictionStats()
	if ps.GetCoverageRatio() != 0 {
		t.Fatal("expected zero coverage with no outcomes")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ps.RecordPrediction(common.RegimeSieve)
			ps.RecordPrediction(common.RegimeEntropy)
			ps.RecordOutcome(common.Record{Predicted: 4, Actual: 2, Covered: true})
			ps.RecordOutcome(common.Record{Predicted: 2, Actual: 6})
			ps.RecordOutcome(common.Record{Predicted: 8}) // unknown actual
		}()
	}
	wg.Wait()
	ps.RecordInvalid()

	snap := ps.Snapshot()
	if snap.Sieve != 10 || snap.Entropy != 10 {
		t.Errorf("regime counts: %+v", snap)
	}
	if snap.Checked != 20 || snap.Covered != 10 {
		t.Errorf("outcome counts: %+v", snap)
	}
	if snap.Invalid != 1 {
		t.Errorf("invalid count: %d", snap.Invalid)
	}
	if snap.Coverage != 0.5 {
		t.Errorf("coverage: got %v, want 0.5", snap.Coverage)
	}
}
