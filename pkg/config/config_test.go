package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Ensemble.Weights["sequence"] != 0.4 || c.Ensemble.Weights["forest"] != 0.3 {
		t.Fatalf("unexpected default weights %v", c.Ensemble.Weights)
	}
	if c.Calibration.FreshnessWindow != 7*24*time.Hour {
		t.Fatalf("unexpected freshness window %v", c.Calibration.FreshnessWindow)
	}
	if len(c.Features.SMAPeriods) != 4 || c.Features.SMAPeriods[3] != 200 {
		t.Fatalf("unexpected sma periods %v", c.Features.SMAPeriods)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
environment: test
server:
  port: 9090
calibration:
  strategy: drift
  windows: 6
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9090 || c.Calibration.Strategy != "drift" || c.Calibration.Windows != 6 {
		t.Fatalf("yaml not applied: %+v", c.Server)
	}
	if c.Calibration.Horizon != 5 {
		t.Fatalf("default horizon lost, got %d", c.Calibration.Horizon)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"bad source":      func(c *Config) { c.History.Source = "csv" },
		"remote no url":   func(c *Config) { c.Ensemble.ModelSource = "remote" },
		"unknown weight":  func(c *Config) { c.Ensemble.Weights["lstm"] = 1 },
		"bad strategy":    func(c *Config) { c.Calibration.Strategy = "oracle" },
		"redis store off": func(c *Config) { c.Calibration.Store = "redis" },
		"kafka no broker": func(c *Config) { c.Kafka.Enabled = true },
		"queue no redis":  func(c *Config) { c.Calibration.Queue.Enabled = true },
		"bad offset":      func(c *Config) { c.Kafka.Consumer.StartOffset = "middle" },
		"confidence low":  func(c *Config) { c.Confidence.Min = 10 },
		"confidence high": func(c *Config) { c.Confidence.Max = 99 },
		"confidence flip": func(c *Config) { c.Confidence.Min, c.Confidence.Max = 90, 80 },
	}
	for name, mutate := range cases {
		c := Default()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
