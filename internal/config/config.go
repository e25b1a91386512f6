package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration sourced from an optional YAML file
// and environment variables. Environment variables win.
type Config struct {
	Environment     string        `yaml:"environment"`
	DatasetPath     string        `yaml:"dataset_path"`
	ModelPath       string        `yaml:"model_path"`
	ONNX            ONNX          `yaml:"onnx"`
	TrafficLogPath  string        `yaml:"traffic_log"`
	AppLogDir       string        `yaml:"app_log_dir"`
	HTTPPort        string        `yaml:"http_port"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	ShuffleSeed     int64         `yaml:"shuffle_seed"`
	FrontendDir     string        `yaml:"frontend_dir"`
	Debug           bool          `yaml:"debug"`
}

// ONNX names the runtime library and tensors of an .onnx model.
type ONNX struct {
	SharedLibrary string `yaml:"shared_library"`
	Input         string `yaml:"input"`
	LabelOutput   string `yaml:"label_output"`
	ProbaOutput   string `yaml:"proba_output"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Environment:     "development",
		DatasetPath:     filepath.Join("data", "processed", "clean_dataset.csv"),
		ModelPath:       filepath.Join("models", "traffic_classifier.json"),
		ONNX:            ONNX{Input: "float_input", LabelOutput: "label", ProbaOutput: "probabilities"},
		TrafficLogPath:  filepath.Join("logs", "traffic_log.csv"),
		AppLogDir:       filepath.Join("data", "logs"),
		HTTPPort:        "8080",
		RefreshInterval: 5 * time.Second,
		ShuffleSeed:     42,
	}
}

// Load reads SOC_CONFIG (if set) and env vars, falling back to defaults so
// every binary can boot with zero configuration.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("SOC_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Environment = getEnv("SOC_ENV", cfg.Environment)
	cfg.DatasetPath = getEnv("SOC_DATASET_PATH", cfg.DatasetPath)
	cfg.ModelPath = getEnv("SOC_MODEL_PATH", cfg.ModelPath)
	cfg.ONNX.SharedLibrary = getEnv("SOC_ONNXRUNTIME_LIB", cfg.ONNX.SharedLibrary)
	cfg.ONNX.Input = getEnv("SOC_ONNX_INPUT", cfg.ONNX.Input)
	cfg.ONNX.LabelOutput = getEnv("SOC_ONNX_LABEL_OUTPUT", cfg.ONNX.LabelOutput)
	cfg.ONNX.ProbaOutput = getEnv("SOC_ONNX_PROBA_OUTPUT", cfg.ONNX.ProbaOutput)
	cfg.TrafficLogPath = getEnv("SOC_TRAFFIC_LOG", cfg.TrafficLogPath)
	cfg.AppLogDir = getEnv("SOC_APP_LOG_DIR", cfg.AppLogDir)
	cfg.HTTPPort = getEnv("SOC_HTTP_PORT", cfg.HTTPPort)
	cfg.MetricsAddr = getEnv("SOC_METRICS_ADDR", cfg.MetricsAddr)
	cfg.FrontendDir = getEnv("SOC_FRONTEND_DIR", cfg.FrontendDir)

	var err error
	if cfg.RefreshInterval, err = getDuration("SOC_REFRESH_INTERVAL", cfg.RefreshInterval); err != nil {
		return Config{}, err
	}
	if cfg.ShuffleSeed, err = getInt("SOC_SHUFFLE_SEED", cfg.ShuffleSeed); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = getBool("SOC_DEBUG", cfg.Debug); err != nil {
		return Config{}, err
	}

	if cfg.RefreshInterval <= 0 {
		return Config{}, fmt.Errorf("refresh interval must be positive, got %s", cfg.RefreshInterval)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, errors.Unwrap(err))
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, errors.Unwrap(err))
	}
	return b, nil
}
