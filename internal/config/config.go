package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ModelConfig struct {
	Path         string `yaml:"path"`
	MetadataPath string `yaml:"metadata_path"`
	LibraryPath  string `yaml:"library_path"`
	Sessions     int    `yaml:"sessions"`
}

type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

type PreprocessConfig struct {
	Resample   string `yaml:"resample"`
	AutoOrient bool   `yaml:"auto_orient"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings the service runs with when nothing is configured.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			Path:         "models/acne_model.onnx",
			MetadataPath: "models/model_metadata.json",
			Sessions:     1,
		},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			MaxBytes: 20 << 20,
		},
		Preprocess: PreprocessConfig{
			Resample: "bicubic",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (if path is
// non-empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	setString(&cfg.Model.Path, "MODEL_PATH")
	setString(&cfg.Model.MetadataPath, "MODEL_METADATA_PATH")
	setString(&cfg.Model.LibraryPath, "ONNXRUNTIME_LIB")
	setString(&cfg.Preprocess.Resample, "RESAMPLE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("MODEL_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MODEL_SESSIONS %q: %w", v, err)
		}
		cfg.Model.Sessions = n
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT %q: %w", v, err)
		}
		cfg.Fetch.Timeout = d
	}
	if v := os.Getenv("FETCH_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid FETCH_MAX_BYTES %q: %w", v, err)
		}
		cfg.Fetch.MaxBytes = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

var resamplers = []string{"nearest", "bilinear", "bicubic", "mitchell", "lanczos2", "lanczos3"}

// Validate reports the first setting that the service cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Model.Path == "" {
		return errors.New("model.path must not be empty")
	}
	if c.Model.Sessions < 1 {
		return fmt.Errorf("model.sessions must be at least 1, got %d", c.Model.Sessions)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must not be negative, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("fetch.max_bytes must not be negative, got %d", c.Fetch.MaxBytes)
	}
	ok := false
	for _, r := range resamplers {
		if strings.EqualFold(c.Preprocess.Resample, r) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("preprocess.resample %q is not one of %s", c.Preprocess.Resample, strings.Join(resamplers, ", "))
	}
	return nil
}
