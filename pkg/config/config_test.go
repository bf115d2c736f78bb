package config

import (
	"os"
	"path/filepath"
	"testing"

	"primegap/pkg/model"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/primegap.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	// Load with empty path uses default search (may use defaults if no config file)
	cfg, _ := Load("")
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr: got %s", cfg.Server.Addr)
	}
	if cfg.Server.TCPAddr != ":9090" {
		t.Errorf("default tcp_addr: got %s", cfg.Server.TCPAddr)
	}
	if cfg.Model.Calibration != model.DefaultCalibration {
		t.Errorf("default calibration: got %s", cfg.Model.Calibration)
	}
	if cfg.Survey.Count != 1000 {
		t.Errorf("default survey count: got %d", cfg.Survey.Count)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
server:
  addr: ":9000"
  tcp_addr: ":9001"
storage:
  path: "runs.db"
model:
  calibration: tight
  calibrations:
    - name: tight
      root_scaling: 1.2
      correction: 0.05
      threshold:
        kind: volatility
        volatility: 0.001
      sieve: additive
      entropy: loglog
survey:
  count: 500
  checkpoints: [1, 2, 331, 400]
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr: got %s", cfg.Server.Addr)
	}
	if cfg.Storage.Path != "runs.db" {
		t.Errorf("storage path: got %s", cfg.Storage.Path)
	}
	if cfg.Survey.Count != 500 || len(cfg.Survey.Checkpoints) != 4 {
		t.Errorf("survey: got %+v", cfg.Survey)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %s", cfg.Log.Level)
	}

	cal, err := cfg.Calibration("")
	if err != nil {
		t.Fatalf("Calibration: %v", err)
	}
	if cal.Name != "tight" || cal.Threshold.Kind != model.ThresholdVolatility || cal.Threshold.Volatility != 0.001 {
		t.Errorf("custom calibration: got %+v", cal)
	}
	if cal.Sieve != model.StrategyAdditive || cal.Entropy != model.StrategyLogLog {
		t.Errorf("custom strategies: got %s/%s", cal.Sieve, cal.Entropy)
	}

	if got := len(cfg.Calibrations()); got != 4 {
		t.Errorf("expected custom + 3 presets, got %d", got)
	}
}

func TestCalibrationLookup(t *testing.T) {
	cfg := Default()
	cal, err := cfg.Calibration(model.PresetLGOModel)
	if err != nil {
		t.Fatalf("preset lookup: %v", err)
	}
	if cal.RootScaling != 0.844 {
		t.Errorf("lgo-model root scaling: got %v", cal.RootScaling)
	}
	if _, err := cfg.Calibration("missing"); err == nil {
		t.Error("expected error for unknown calibration")
	}

	cfg.Model.Calibrations = []model.Calibration{{Name: "broken", Sieve: "nope"}}
	if _, err := cfg.Calibration("broken"); err == nil {
		t.Error("expected validation error for broken custom calibration")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("survey: [1, 2"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
