package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"primegap/pkg/model"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Model   ModelConfig   `yaml:"model"`
	Survey  SurveyConfig  `yaml:"survey"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`      // HTTP Listen Address (e.g. :8080)
	TCPAddr  string `yaml:"tcp_addr"`  // TCP Listen Address (e.g. :9090)
	MaxConns int    `yaml:"max_conns"` // 0 = unlimited
}

type StorageConfig struct {
	Path string `yaml:"path"` // SQLite run log; empty disables persistence
}

type ModelConfig struct {
	Calibration  string              `yaml:"calibration"`
	Calibrations []model.Calibration `yaml:"calibrations"` // custom sets, may shadow presets
}

type SurveyConfig struct {
	Count       int   `yaml:"count"`
	Checkpoints []int `yaml:"checkpoints"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		Model: ModelConfig{
			Calibration: model.DefaultCalibration,
		},
		Survey: SurveyConfig{
			Count: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/primegap.yaml", "primegap.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, fmt.Errorf("parse %s: %w", p, err)
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configPath, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.TCPAddr == "" {
		cfg.Server.TCPAddr = ":9090"
	}
	if cfg.Model.Calibration == "" {
		cfg.Model.Calibration = model.DefaultCalibration
	}
	if cfg.Survey.Count <= 0 {
		cfg.Survey.Count = 1000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Calibration resolves name against the custom sets first, then the built-in presets.
// An empty name selects Model.Calibration.
func (c *Config) Calibration(name string) (model.Calibration, error) {
	if name == "" {
		name = c.Model.Calibration
	}
	for _, cal := range c.Model.Calibrations {
		if cal.Name == name {
			if err := cal.Validate(); err != nil {
				return model.Calibration{}, err
			}
			return cal, nil
		}
	}
	if cal, ok := model.Preset(name); ok {
		return cal, nil
	}
	return model.Calibration{}, fmt.Errorf("unknown calibration %q", name)
}

// Calibrations lists custom sets followed by presets they do not shadow.
func (c *Config) Calibrations() []model.Calibration {
	out := make([]model.Calibration, 0, len(c.Model.Calibrations)+3)
	seen := make(map[string]bool)
	for _, cal := range c.Model.Calibrations {
		out = append(out, cal)
		seen[cal.Name] = true
	}
	for _, cal := range model.Presets() {
		if !seen[cal.Name] {
			out = append(out, cal)
		}
	}
	return out
}
