package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"primegap/pkg/common"
	"primegap/pkg/config"
	"primegap/pkg/core"
	"primegap/pkg/model"
	"primegap/pkg/monitor"
	"primegap/pkg/primes"
	"primegap/pkg/report"
	"primegap/pkg/storage"
)

// MaxSurvey caps /api/survey so a single request cannot pin the server.
const MaxSurvey = 100000

type Server struct {
	cfg     *config.Config
	stats   *monitor.PredictionStats
	backend storage.Backend // optional
	source  *primes.TrialDivision
	logger  *zap.Logger
	mux     *http.ServeMux
}

func NewServer(cfg *config.Config, stats *monitor.PredictionStats, backend storage.Backend, logger *zap.Logger) *Server {
	if stats == nil {
		stats = monitor.NewPredictionStats()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		stats:   stats,
		backend: backend,
		source:  primes.NewTrialDivision(MaxSurvey),
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/predict", s.handlePredict)
	s.mux.HandleFunc("/api/calibrations", s.handleCalibrations)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/survey", s.handleSurvey)
	s.mux.HandleFunc("/api/verify", s.handleVerify)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) predictor(r *http.Request) (*model.GapModel, error) {
	cal, err := s.cfg.Calibration(r.URL.Query().Get("calibration"))
	if err != nil {
		return nil, err
	}
	return model.NewGapModel(cal)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	q := r.URL.Query()

	index, err := strconv.Atoi(q.Get("index"))
	if err != nil {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}
	value, err := strconv.ParseInt(q.Get("value"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid value", http.StatusBadRequest)
		return
	}

	m, err := s.predictor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	p, err := m.Observe(common.PrimeObservation{Index: index, Value: value})
	duration := time.Since(start)
	if err != nil {
		s.stats.RecordInvalid()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.stats.RecordPrediction(p.Regime)

	resp := map[string]interface{}{
		"index":         index,
		"value":         value,
		"predicted_gap": p.Gap,
		"raw":           p.Raw,
		"regime":        p.Regime.String(),
		"calibration":   m.Calibration().Name,
		"latency_ns":    duration.Nanoseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleCalibrations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(map[string]interface{}{
		"default":      s.cfg.Model.Calibration,
		"calibrations": s.cfg.Calibrations(),
		"sieve":        model.SieveStrategies(),
		"entropy":      model.EntropyStrategies(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(s.stats.Snapshot())
}

func (s *Server) handleSurvey(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	q := r.URL.Query()

	n := s.cfg.Survey.Count
	if v := q.Get("n"); v != "" {
		var err error
		if n, err = strconv.Atoi(v); err != nil || n < 1 || n > MaxSurvey {
			http.Error(w, fmt.Sprintf("n must be in [1, %d]", MaxSurvey), http.StatusBadRequest)
			return
		}
	}

	format := q.Get("format")
	if format == "" {
		format = "jsonl"
	}
	rep, err := report.New(format, w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	checkpoints, err := parseIndices(q.Get("checkpoints"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := s.predictor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := []core.Option{
		core.WithStats(s.stats),
		core.WithLogger(s.logger.Named("survey")),
		core.WithCheckpoints(checkpoints...),
	}
	if s.backend != nil {
		opts = append(opts, core.WithBackend(s.backend))
	}
	survey := core.NewSurvey(m, opts...)

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("X-Run-Id", survey.RunID())

	if _, err := survey.Run(r.Context(), primes.Take(s.source, n), rep.Write); err != nil {
		// headers are already out; the truncated body is all the client gets
		s.logger.Warn("survey aborted", zap.String("run_id", survey.RunID()), zap.Error(err))
		return
	}
	if err := rep.Flush(); err != nil {
		s.logger.Warn("flush survey report", zap.Error(err))
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	m, err := s.predictor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	verdicts, err := core.Verify(m, core.ReferencePoints)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"calibration": m.Calibration().Name,
		"points":      verdicts,
	})
}

func parseIndices(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || idx < 1 {
			return nil, fmt.Errorf("invalid checkpoint %q", p)
		}
		out = append(out, idx)
	}
	return out, nil
}

func contentType(format string) string {
	switch format {
	case "csv":
		return "text/csv"
	case "jsonl":
		return "application/x-ndjson"
	default:
		return "text/plain; charset=utf-8"
	}
}
