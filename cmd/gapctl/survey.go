package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"primegap/pkg/core"
	"primegap/pkg/primes"
	"primegap/pkg/report"
	"primegap/pkg/storage"
)

var (
	surveyCount       int
	surveyFormat      string
	surveyCheckpoints []int
	surveyDB          string
)

func runSurvey(cmd *cobra.Command, args []string) error {
	n := surveyCount
	if n <= 0 {
		n = cfg.Survey.Count
	}
	checkpoints := surveyCheckpoints
	if len(checkpoints) == 0 {
		checkpoints = cfg.Survey.Checkpoints
	}
	dbPath := surveyDB
	if dbPath == "" {
		dbPath = cfg.Storage.Path
	}

	m, err := activeModel()
	if err != nil {
		return err
	}
	rep, err := report.New(surveyFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts := []core.Option{
		core.WithLogger(logger.Named("survey")),
		core.WithCheckpoints(checkpoints...),
	}
	if dbPath != "" {
		b, err := storage.NewSQLiteBackend(dbPath)
		if err != nil {
			return fmt.Errorf("open run log: %w", err)
		}
		defer b.Close()
		opts = append(opts, core.WithBackend(b))
	}

	s := core.NewSurvey(m, opts...)
	sum, err := s.Run(cmd.Context(), primes.NewTrialDivision(n), rep.Write)
	if err != nil {
		return err
	}
	if err := rep.Flush(); err != nil {
		return err
	}

	logger.Info("survey finished",
		zap.String("run_id", sum.RunID),
		zap.Int("checked", sum.Checked),
		zap.Int("covered", sum.Covered),
		zap.Ints("undercovered", sum.Undercovered))

	// 表格模式下附上汇总
	if surveyFormat == "text" {
		ratio := 0.0
		if sum.Checked > 0 {
			ratio = float64(sum.Covered) / float64(sum.Checked)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d/%d gaps bounded (%.2f%%), run %s\n",
			sum.Calibration, sum.Covered, sum.Checked, ratio*100, sum.RunID)
	}
	return nil
}
