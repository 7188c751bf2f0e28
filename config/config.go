// Package config resolves service and trainer settings from a YAML file and
// STROKE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Environment overrides, applied after the file.
const (
	EnvArtifactPath = "STROKE_ARTIFACT_PATH"
	EnvDatasetPath  = "STROKE_DATASET_PATH"
	EnvHTTPPort     = "STROKE_HTTP_PORT"
	EnvLogLevel     = "STROKE_LOG_LEVEL"
	EnvRunLog       = "STROKE_RUN_LOG"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Training TrainingConfig `yaml:"training"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// ArtifactConfig locates the serialized pipeline. Watch reloads it when the
// file is replaced.
type ArtifactConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type DatasetConfig struct {
	Path string `yaml:"path"`
}

// TrainingConfig drives the offline trainer. Workers <= 0 uses GOMAXPROCS.
type TrainingConfig struct {
	Folds     int     `yaml:"folds"`
	Repeats   int     `yaml:"repeats"`
	Neighbors int     `yaml:"neighbors"`
	Seed      int64   `yaml:"seed"`
	Workers   int     `yaml:"workers"`
	MaxIter   int     `yaml:"max_iter"`
	Tol       float64 `yaml:"tol"`
	RunLog    string  `yaml:"run_log"`
	ROCPlot   string  `yaml:"roc_plot"`
}

// LogConfig selects level, encoding and an optional rotating file.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// CacheConfig sizes the in-memory prediction cache; 0 disables it.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           5000,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Artifact: ArtifactConfig{
			Path: "models/stroke_model.json",
		},
		Dataset: DatasetConfig{
			Path: "data/healthcare-dataset-stroke-data.csv",
		},
		Training: TrainingConfig{
			Folds:     10,
			Repeats:   3,
			Neighbors: 5,
			Seed:      42,
			MaxIter:   1000,
			Tol:       1e-6,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		if err := config.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.SetStrict(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvArtifactPath); ok {
		c.Artifact.Path = v
	}
	if v, ok := os.LookupEnv(EnvDatasetPath); ok {
		c.Dataset.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvRunLog); ok {
		c.Training.RunLog = v
	}
	if v, ok := os.LookupEnv(EnvHTTPPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHTTPPort, err)
		}
		c.HTTP.Port = port
	}
	return nil
}

// Validate rejects settings neither binary can run with.
func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.Artifact.Path == "" {
		return errors.New("artifact.path is required")
	}
	if c.Training.Folds < 2 {
		return fmt.Errorf("training.folds must be at least 2, got %d", c.Training.Folds)
	}
	if c.Training.Repeats < 1 {
		return fmt.Errorf("training.repeats must be at least 1, got %d", c.Training.Repeats)
	}
	if c.Training.Neighbors < 1 {
		return fmt.Errorf("training.neighbors must be at least 1, got %d", c.Training.Neighbors)
	}
	if c.Training.MaxIter < 1 || c.Training.Tol <= 0 {
		return errors.New("training.max_iter and training.tol must be positive")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
