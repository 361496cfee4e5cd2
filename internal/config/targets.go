package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/speedwagon-io/gauge/internal/gauge"
)

type TargetsConfig struct {
	SourceID   string           `yaml:"source_id" env-required:"true"`
	SourceName string           `yaml:"source_name"`
	Connection ConnectionConfig `yaml:"connection"`
	Polling    PollingConfig    `yaml:"polling"`
	Targets    []TargetConfig   `yaml:"targets"`
}

type ConnectionConfig struct {
	BaseURL string        `yaml:"base_url"`
	Adapter string        `yaml:"adapter" env-default:"metrics_api"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type PollingConfig struct {
	Interval time.Duration `yaml:"interval" env-default:"10s"`
	Timeout  time.Duration `yaml:"timeout" env-default:"5s"`
}

type TargetConfig struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Group    string        `yaml:"group"`
	Endpoint string        `yaml:"endpoint"`
	Fields   []FieldConfig `yaml:"fields"`
}

type FieldConfig struct {
	Source string       `yaml:"source"`
	Target string       `yaml:"target"`
	Metric gauge.Metric `yaml:"metric"`
	Unit   string       `yaml:"unit,omitempty"`
}

func MustLoadTargets(configPath string) *TargetsConfig {
	cfg, err := LoadTargets(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func LoadTargets(configPath string) (*TargetsConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("targets config file not found: %s", configPath)
	}

	var cfg TargetsConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read targets config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid targets config: %w", err)
	}

	return &cfg, nil
}

// Validate normalizes metric names in place.
func (c *TargetsConfig) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("no targets configured")
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for i := range c.Targets {
		t := &c.Targets[i]
		if t.ID == "" {
			return fmt.Errorf("target #%d: missing id", i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("target %s: duplicate id", t.ID)
		}
		seen[t.ID] = struct{}{}

		for j := range t.Fields {
			f := &t.Fields[j]
			if f.Source == "" {
				return fmt.Errorf("target %s field #%d: missing source", t.ID, j)
			}
			if f.Target == "" {
				f.Target = f.Source
			}
			m, err := gauge.ParseMetric(string(f.Metric))
			if err != nil {
				return fmt.Errorf("target %s field %s: %w", t.ID, f.Source, err)
			}
			f.Metric = m
		}
	}

	return nil
}
