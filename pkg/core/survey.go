package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"primegap/pkg/common"
	"primegap/pkg/model"
	"primegap/pkg/monitor"
	"primegap/pkg/primes"
	"primegap/pkg/storage"
)

const defaultBatchSize = 500

// Sink receives every emitted record in index order.
type Sink func(rec common.Record) error

type Survey struct {
	predictor   model.Predictor
	stats       *monitor.PredictionStats
	backend     storage.Backend
	logger      *zap.Logger
	checkpoints map[int]bool
	batchSize   int
	runID       string
}

type Option func(*Survey)

func WithStats(stats *monitor.PredictionStats) Option {
	return func(s *Survey) { s.stats = stats }
}

// WithBackend persists every emitted record to the run log under the survey's run id.
func WithBackend(b storage.Backend) Option {
	return func(s *Survey) { s.backend = b }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Survey) { s.logger = l }
}

// WithCheckpoints restricts emission to the given prime indices. No indices means emit everything.
func WithCheckpoints(indices ...int) Option {
	return func(s *Survey) {
		if len(indices) == 0 {
			s.checkpoints = nil
			return
		}
		s.checkpoints = make(map[int]bool, len(indices))
		for _, idx := range indices {
			s.checkpoints[idx] = true
		}
	}
}

func WithBatchSize(n int) Option {
	return func(s *Survey) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func NewSurvey(p model.Predictor, opts ...Option) *Survey {
	s := &Survey{
		predictor: p,
		stats:     monitor.NewPredictionStats(),
		logger:    zap.NewNop(),
		batchSize: defaultBatchSize,
		runID:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Survey) RunID() string                    { return s.runID }
func (s *Survey) Stats() *monitor.PredictionStats { return s.stats }

type Summary struct {
	RunID        string `json:"run_id"`
	Calibration  string `json:"calibration"`
	Emitted      int    `json:"emitted"`
	Checked      int    `json:"checked"`
	Covered      int    `json:"covered"`
	Undercovered []int  `json:"undercovered,omitempty"` // indices where predicted < actual
}

// Run walks src once, pairing each prime with its successor to obtain the actual gap.
// The final prime of a finite source is emitted with an unknown (zero) actual gap.
func (s *Survey) Run(ctx context.Context, src primes.Source, sink Sink) (Summary, error) {
	cal := s.predictor.Calibration().Name
	sum := Summary{RunID: s.runID, Calibration: cal}
	log := s.logger.With(zap.String("run_id", s.runID), zap.String("calibration", cal))

	buffer := make([]storage.Observation, 0, s.batchSize)
	flush := func() error {
		if s.backend == nil || len(buffer) == 0 {
			return nil
		}
		if err := s.backend.BatchWrite(buffer); err != nil {
			return fmt.Errorf("persist run %s: %w", s.runID, err)
		}
		buffer = buffer[:0]
		return nil
	}

	it := src.Iterate()
	cur, ok := it.Next()
	for ok {
		if err := ctx.Err(); err != nil {
			if ferr := flush(); ferr != nil {
				log.Warn("flush after cancel failed", zap.Error(ferr))
			}
			return sum, err
		}

		next, hasNext := it.Next()
		if s.checkpoints == nil || s.checkpoints[cur.Index] {
			var actual int
			if hasNext {
				actual = int(next.Value - cur.Value)
			}
			rec, err := s.observe(cur, actual)
			if err != nil {
				return sum, err
			}

			sum.Emitted++
			if rec.HasActual() {
				sum.Checked++
				if rec.Covered {
					sum.Covered++
				} else {
					sum.Undercovered = append(sum.Undercovered, rec.Index)
					log.Debug("prediction below actual gap",
						zap.Int("index", rec.Index), zap.Int64("value", rec.Value),
						zap.Int("predicted", rec.Predicted), zap.Int("actual", rec.Actual))
				}
			}

			if s.backend != nil {
				buffer = append(buffer, storage.Observation{RunID: s.runID, Calibration: cal, Record: rec})
				if len(buffer) >= s.batchSize {
					if err := flush(); err != nil {
						return sum, err
					}
				}
			}
			if sink != nil {
				if err := sink(rec); err != nil {
					return sum, err
				}
			}
		}
		cur, ok = next, hasNext
	}

	if err := flush(); err != nil {
		return sum, err
	}
	log.Info("survey complete",
		zap.Int("emitted", sum.Emitted), zap.Int("checked", sum.Checked), zap.Int("covered", sum.Covered))
	return sum, nil
}

func (s *Survey) observe(obs common.PrimeObservation, actual int) (common.Record, error) {
	p, err := s.predictor.Observe(obs)
	if err != nil {
		s.stats.RecordInvalid()
		return common.Record{}, fmt.Errorf("predict %s: %w", obs, err)
	}
	rec := common.Record{
		Index:     obs.Index,
		Value:     obs.Value,
		Predicted: p.Gap,
		Actual:    actual,
		Regime:    p.Regime,
		Raw:       p.Raw,
	}
	rec.Covered = rec.HasActual() && rec.Predicted >= rec.Actual

	s.stats.RecordPrediction(rec.Regime)
	s.stats.RecordOutcome(rec)
	return rec, nil
}
