package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"primegap/pkg/core"
	"primegap/pkg/model"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func runPredict(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", args[0], err)
	}
	value, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}

	m, err := activeModel()
	if err != nil {
		return err
	}
	p, err := m.Predict(index, value)
	if err != nil {
		return err
	}
	logger.Debug("predicted", zap.Int("index", index), zap.Int64("value", value), zap.Int("gap", p))

	fmt.Fprintln(cmd.OutOrStdout(), p)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	m, err := activeModel()
	if err != nil {
		return err
	}
	verdicts, err := core.Verify(m, core.ReferencePoints)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Calibration: %s\n", m.Calibration().Name)
	failed := 0
	for _, v := range verdicts {
		mark := passStyle.Render("PASS")
		if !v.Pass {
			mark = failStyle.Render("FAIL")
			failed++
		}
		fmt.Fprintf(out, "  P_%-5d = %-6d %-8s predicted %4d  actual %4d  %s\n",
			v.Index, v.Value, v.Prediction.Regime, v.Prediction.Gap, v.ActualGap, mark)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reference gaps not bounded", failed, len(verdicts))
	}
	return nil
}

func runCalibrations(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	active := calibration
	if active == "" {
		active = cfg.Model.Calibration
	}
	for _, cal := range cfg.Calibrations() {
		marker := " "
		if cal.Name == active {
			marker = "*"
		}
		threshold := fmt.Sprintf("index<=%d", cal.Threshold.Index)
		if cal.Threshold.Kind == model.ThresholdVolatility {
			threshold = fmt.Sprintf("1/p>%g", cal.Threshold.Volatility)
		}
		fmt.Fprintf(out, "%s %-10s C_root=%-10.6g C_add=%-12.6g %-14s sieve=%-11s entropy=%s\n",
			marker, cal.Name, cal.RootScaling, cal.Correction, threshold, cal.Sieve, cal.Entropy)
	}
	return nil
}
