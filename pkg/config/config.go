// Package config loads job configuration from a YAML file layered over
// defaults. Everything the CLI flags do not cover lives here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"protocol-extractor/pkg/roster"
)

// SinkConfig selects and parameterizes the speech store.
type SinkConfig struct {
	// Kind is one of "file", "postgres", "mongo".
	Kind string `yaml:"kind"`

	// Dir is the output directory for the file sink.
	Dir string `yaml:"dir"`

	PostgresDSN string `yaml:"postgres_dsn"`

	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

// Config is the full job configuration.
type Config struct {
	// Period is the legislative period to process.
	Period int `yaml:"period"`

	APIBaseURL string `yaml:"api_base_url"`
	APIKey     string `yaml:"api_key"`
	FeedURL    string `yaml:"feed_url"`

	CacheDir    string `yaml:"cache_dir"`
	ProgressDir string `yaml:"progress_dir"`
	ExportDir   string `yaml:"export_dir"`

	// Concurrency bounds the parallel protocol fan-out.
	Concurrency int `yaml:"concurrency"`

	// RosterThreshold is the fuzzy speaker-match cutoff.
	RosterThreshold float64 `yaml:"roster_threshold"`

	// RequestsPerSecond throttles archive requests.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`

	Sink SinkConfig `yaml:"sink"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Period:            20,
		APIBaseURL:        "https://search.dip.bundestag.de/api/v1",
		APIKey:            os.Getenv("DIP_API_KEY"),
		FeedURL:           "https://www.bundestag.de/static/appdata/includes/rss/plenarprotokolle.rss",
		CacheDir:          "cache",
		ProgressDir:       "progress",
		ExportDir:         "output",
		Concurrency:       2,
		RosterThreshold:   roster.DefaultThreshold,
		RequestsPerSecond: 2,
		MaxRetries:        3,
		Sink: SinkConfig{
			Kind: "file",
			Dir:  "speeches",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("period must be positive, got %d", c.Period)
	}
	if c.RosterThreshold < 0 || c.RosterThreshold > 1 {
		return fmt.Errorf("roster_threshold %v outside [0,1]", c.RosterThreshold)
	}
	switch c.Sink.Kind {
	case "file", "postgres", "mongo":
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	return nil
}
