package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"primegap/pkg/config"
	"primegap/pkg/storage"
)

// setup resets the package-level flag state the commands read.
func setup(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	logger = zap.NewNop()
	cfg = config.Default()
	calibration = ""
	surveyCount, surveyFormat, surveyCheckpoints, surveyDB = 0, "text", nil, ""
	t.Cleanup(func() { calibration = "" })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestPredictCmd(t *testing.T) {
	cmd, out := setup(t)

	if err := runPredict(cmd, []string{"400", "2753"}); err != nil {
		t.Fatalf("runPredict failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "102" {
		t.Errorf("closure predict(400, 2753): got %q, want 102", got)
	}

	out.Reset()
	calibration = "sieve-v2"
	if err := runPredict(cmd, []string{"400", "2753"}); err != nil {
		t.Fatalf("runPredict failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "60" {
		t.Errorf("sieve-v2 predict(400, 2753): got %q, want 60", got)
	}
}

func TestPredictCmdRejectsBadInput(t *testing.T) {
	cmd, _ := setup(t)

	for _, args := range [][]string{{"x", "11"}, {"5", "eleven"}, {"0", "11"}, {"1", "1"}} {
		if err := runPredict(cmd, args); err == nil {
			t.Errorf("runPredict(%v) should fail", args)
		}
	}
	calibration = "missing"
	if err := runPredict(cmd, []string{"5", "11"}); err == nil {
		t.Error("unknown calibration should fail")
	}
}

func TestVerifyCmd(t *testing.T) {
	cmd, out := setup(t)

	if err := runVerify(cmd, nil); err != nil {
		t.Fatalf("closure should bound every reference gap: %v\n%s", err, out.String())
	}
	if n := strings.Count(out.String(), "PASS"); n != 3 {
		t.Errorf("expected 3 PASS lines, got %d:\n%s", n, out.String())
	}

	out.Reset()
	calibration = "lgo-model"
	if err := runVerify(cmd, nil); err == nil {
		t.Error("lgo-model should miss the 7901 record")
	}
	if !strings.Contains(out.String(), "FAIL") {
		t.Errorf("expected a FAIL line:\n%s", out.String())
	}
}

func TestCalibrationsCmd(t *testing.T) {
	cmd, out := setup(t)

	if err := runCalibrations(cmd, nil); err != nil {
		t.Fatalf("runCalibrations failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 presets, got %d:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "* closure") {
		t.Errorf("default calibration should be marked: %q", lines[0])
	}
	if !strings.Contains(out.String(), "1/p>0.0025") {
		t.Errorf("volatility threshold missing:\n%s", out.String())
	}
}

func TestSurveyCmd(t *testing.T) {
	cmd, out := setup(t)
	surveyCount = 10
	surveyFormat = "jsonl"
	surveyDB = filepath.Join(t.TempDir(), "runs.db")

	if err := runSurvey(cmd, nil); err != nil {
		t.Fatalf("runSurvey failed: %v", err)
	}
	if n := strings.Count(out.String(), "\n"); n != 10 {
		t.Errorf("expected 10 jsonl lines, got %d", n)
	}

	b, err := storage.NewSQLiteBackend(surveyDB)
	if err != nil {
		t.Fatalf("reopen run log: %v", err)
	}
	defer b.Close()
	runs, err := b.Runs()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one persisted run, got %v (err=%v)", runs, err)
	}
	rows, err := b.LoadAll(runs[0])
	if err != nil || len(rows) != 10 {
		t.Fatalf("expected 10 persisted rows, got %d (err=%v)", len(rows), err)
	}
}

func TestSurveyCmdTextSummary(t *testing.T) {
	cmd, out := setup(t)
	surveyCount = 1000
	surveyCheckpoints = []int{429}

	if err := runSurvey(cmd, nil); err != nil {
		t.Fatalf("runSurvey failed: %v", err)
	}
	body := out.String()
	if !strings.Contains(body, "FAIL") {
		t.Errorf("P_429 is an under-predicted gap, expected FAIL:\n%s", body)
	}
	if !strings.Contains(body, "closure: 0/1 gaps bounded") {
		t.Errorf("missing summary line:\n%s", body)
	}
}

func TestSurveyCmdUnknownFormat(t *testing.T) {
	cmd, _ := setup(t)
	surveyFormat = "xml"
	if err := runSurvey(cmd, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
