package model

import "primegap/pkg/common"

// Predictor 屏蔽不同校准集合 (calibration) 的差异
type Predictor interface {
	Predict(index int, value int64) (gap int, err error)
	Observe(obs common.PrimeObservation) (GapPrediction, error)
	Calibration() Calibration
}
