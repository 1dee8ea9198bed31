package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Backend
	APIBaseURL string `yaml:"api_base_url"`

	// Launch context. LaunchURL is the page-URL analogue: it may carry the
	// one-time ?token= parameter and UI navigation state. InitData is the raw
	// signed host payload when the app was started by the chat host.
	LaunchURL string `yaml:"launch_url"`
	InitData  string `yaml:"init_data"`

	// Local state
	DataDir string `yaml:"data_dir"`
	LogFile string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	// Environment detection
	DetectTimeout time.Duration `yaml:"detect_timeout"`

	// Mock backend
	UseMock         bool          `yaml:"use_mock"`
	MockLatencyMin  time.Duration `yaml:"mock_latency_min"`
	MockLatencyMax  time.Duration `yaml:"mock_latency_max"`
	MockFailureRate float64       `yaml:"mock_failure_rate"`
}

// Load reads the optional YAML config file, then lets environment variables
// override it. Missing file is not an error.
func Load() *Config {
	cfg := defaults()
	if path := configFilePath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}
	cfg.applyEnv()
	return cfg
}

func defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		APIBaseURL:      "http://localhost:3002",
		DataDir:         dataDir,
		LogFile:         filepath.Join(dataDir, "fingram.log"),
		LogLevel:        "info",
		DetectTimeout:   3 * time.Second,
		MockLatencyMin:  200 * time.Millisecond,
		MockLatencyMax:  600 * time.Millisecond,
		MockFailureRate: 0.1,
	}
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getEnv("FINGRAM_API_BASE_URL", c.APIBaseURL)
	c.LaunchURL = getEnv("FINGRAM_LAUNCH_URL", c.LaunchURL)
	c.InitData = getEnv("FINGRAM_INIT_DATA", c.InitData)
	c.DataDir = getEnv("FINGRAM_DATA_DIR", c.DataDir)
	c.LogFile = getEnv("FINGRAM_LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("FINGRAM_LOG_LEVEL", c.LogLevel)
	c.DetectTimeout = getEnvDuration("FINGRAM_DETECT_TIMEOUT", c.DetectTimeout)
	c.UseMock = getEnvBool("FINGRAM_USE_MOCK", c.UseMock)
	c.MockLatencyMin = getEnvDuration("FINGRAM_MOCK_LATENCY_MIN", c.MockLatencyMin)
	c.MockLatencyMax = getEnvDuration("FINGRAM_MOCK_LATENCY_MAX", c.MockLatencyMax)
	c.MockFailureRate = getEnvFloat("FINGRAM_MOCK_FAILURE_RATE", c.MockFailureRate)
}

// StorePath is the SQLite file backing the persistent key/value store.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "fingram.db")
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.APIBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid API base URL %q: %v", c.APIBaseURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid API base URL scheme %q: must be http or https", u.Scheme))
	}

	if c.LaunchURL != "" {
		if _, err := url.Parse(c.LaunchURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid launch URL %q: %v", c.LaunchURL, err))
		}
	}

	if c.DataDir == "" {
		errs = append(errs, "data directory cannot be empty")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q: must be debug, info, warn or error", c.LogLevel))
	}

	if c.DetectTimeout < 100*time.Millisecond {
		errs = append(errs, fmt.Sprintf("detect timeout %v too short: must be at least 100ms", c.DetectTimeout))
	}

	if c.MockLatencyMin < 0 || c.MockLatencyMax < c.MockLatencyMin {
		errs = append(errs, fmt.Sprintf("invalid mock latency band [%v, %v]", c.MockLatencyMin, c.MockLatencyMax))
	}
	if c.MockFailureRate < 0 || c.MockFailureRate > 1 {
		errs = append(errs, fmt.Sprintf("invalid mock failure rate %v: must be within [0, 1]", c.MockFailureRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func configFilePath() string {
	if p := os.Getenv("FINGRAM_CONFIG"); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "fingram", "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share", "fingram")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
