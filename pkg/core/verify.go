package core

import (
	"primegap/pkg/common"
	"primegap/pkg/model"
)

// ReferencePoint is a prime with a known maximal gap record the predictor must bound.
type ReferencePoint struct {
	Index     int   `json:"index"`
	Value     int64 `json:"value"`
	ActualGap int   `json:"actual_gap"`
}

var ReferencePoints = []ReferencePoint{
	{Index: 5, Value: 11, ActualGap: 2},      // start of the sieve field
	{Index: 400, Value: 2753, ActualGap: 22}, // near the breakpoint
	{Index: 999, Value: 7901, ActualGap: 20}, // entropy field
}

type Verdict struct {
	ReferencePoint
	Prediction model.GapPrediction `json:"prediction"`
	Pass       bool                `json:"pass"`
}

// Verify marks a point passed when the predicted gap is at least its actual gap.
func Verify(p model.Predictor, points []ReferencePoint) ([]Verdict, error) {
	out := make([]Verdict, 0, len(points))
	for _, pt := range points {
		pred, err := p.Observe(common.PrimeObservation{Index: pt.Index, Value: pt.Value})
		if err != nil {
			return out, err
		}
		out = append(out, Verdict{ReferencePoint: pt, Prediction: pred, Pass: pred.Gap >= pt.ActualGap})
	}
	return out, nil
}
