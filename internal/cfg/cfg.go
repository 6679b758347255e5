package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Pairs         []string
	BaseURL       string
	WsURL         string
	Interval      string
	Ping          time.Duration
	FeedTimeout   time.Duration
	DataPath      string
	ModelsDir     string
	MetricsPort   int
	TrainRows     int
	SplitFraction float64
	WeightFactor  float64
	LabelPeriod   int
	LabelThresh   float64
	Estimators    int
	LearningRate  float64
	MaxDepth      int
	Patience      int
	Debug         bool
}

type ConfigFile struct {
	Feed struct {
		BaseURL  string `yaml:"baseURL"`
		WsURL    string `yaml:"wsURL"`
		Interval string `yaml:"interval"`
		Ping     string `yaml:"pingInterval"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"feed"`

	Data struct {
		Pairs         []string `yaml:"pairs"`
		TrainRows     int      `yaml:"trainRows"`
		SplitFraction float64  `yaml:"splitFraction"`
		WeightFactor  float64  `yaml:"weightFactor"`
		LabelPeriod   int      `yaml:"labelPeriod"`
		LabelThresh   float64  `yaml:"labelThreshold"`
	} `yaml:"data"`

	Model struct {
		Estimators   int     `yaml:"estimators"`
		LearningRate float64 `yaml:"learningRate"`
		MaxDepth     int     `yaml:"maxDepth"`
		Patience     int     `yaml:"patience"`
	} `yaml:"model"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		ModelsDir   string `yaml:"modelsDir"`
		MetricsPort int    `yaml:"metricsPort"`
		Debug       bool   `yaml:"debug"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	ping, err := time.ParseDuration(config.Feed.Ping)
	if err != nil {
		ping = 15 * time.Second
	}
	timeout, err := time.ParseDuration(config.Feed.Timeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	settings := Settings{
		Pairs:         getPairsFromEnvOrConfig(config.Data.Pairs),
		BaseURL:       getEnvOrDefault("BASE_URL", config.Feed.BaseURL),
		WsURL:         getEnvOrDefault("WS_URL", config.Feed.WsURL),
		Interval:      getEnvOrDefault("INTERVAL", defaultString(config.Feed.Interval, "5m")),
		Ping:          ping,
		FeedTimeout:   timeout,
		DataPath:      getEnvOrDefault("DATA_PATH", config.System.DataPath),
		ModelsDir:     getEnvOrDefault("MODELS_DIR", defaultString(config.System.ModelsDir, "models")),
		MetricsPort:   getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort),
		TrainRows:     getIntFromEnvOrConfig("TRAIN_ROWS", config.Data.TrainRows),
		SplitFraction: getFloatFromEnvOrConfig("SPLIT_FRACTION", config.Data.SplitFraction),
		WeightFactor:  getFloatFromEnvOrConfig("WEIGHT_FACTOR", config.Data.WeightFactor),
		LabelPeriod:   getIntFromEnvOrConfig("LABEL_PERIOD", config.Data.LabelPeriod),
		LabelThresh:   getFloatFromEnvOrConfig("LABEL_THRESHOLD", config.Data.LabelThresh),
		Estimators:    getIntFromEnvOrConfig("ESTIMATORS", config.Model.Estimators),
		LearningRate:  getFloatFromEnvOrConfig("LEARNING_RATE", config.Model.LearningRate),
		MaxDepth:      getIntFromEnvOrConfig("MAX_DEPTH", config.Model.MaxDepth),
		Patience:      getIntFromEnvOrConfig("PATIENCE", config.Model.Patience),
		Debug:         getBoolFromEnvOrConfig("DEBUG", config.System.Debug),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Pairs:         splitOrDefault(os.Getenv("PAIRS"), []string{"BTCUSDT"}),
		BaseURL:       getEnvOrDefault("BASE_URL", "https://api.bitunix.com"),
		WsURL:         getEnvOrDefault("WS_URL", "wss://fapi.bitunix.com/public"),
		Interval:      getEnvOrDefault("INTERVAL", "5m"),
		Ping:          getDurationOrDefault("PING_INTERVAL", 15*time.Second),
		FeedTimeout:   getDurationOrDefault("FEED_TIMEOUT", 10*time.Second),
		DataPath:      os.Getenv("DATA_PATH"), // optional
		ModelsDir:     getEnvOrDefault("MODELS_DIR", "models"),
		MetricsPort:   getIntOrDefault("METRICS_PORT", 8080),
		TrainRows:     getIntOrDefault("TRAIN_ROWS", 2000),
		SplitFraction: getFloatOrDefault("SPLIT_FRACTION", 0.25),
		WeightFactor:  getFloatOrDefault("WEIGHT_FACTOR", 0),
		LabelPeriod:   getIntOrDefault("LABEL_PERIOD", 12),
		LabelThresh:   getFloatOrDefault("LABEL_THRESHOLD", 0.002),
		Estimators:    getIntOrDefault("ESTIMATORS", 1000),
		LearningRate:  getFloatOrDefault("LEARNING_RATE", 0.1),
		MaxDepth:      getIntOrDefault("MAX_DEPTH", 6),
		Patience:      getIntOrDefault("PATIENCE", 10),
		Debug:         getBoolOrDefault("DEBUG", false),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.Interval == "" {
		s.Interval = "5m"
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 8080
	}
	if s.TrainRows == 0 {
		s.TrainRows = 2000
	}
	if s.SplitFraction == 0 {
		s.SplitFraction = 0.25
	}
	if s.LabelPeriod == 0 {
		s.LabelPeriod = 12
	}
	if s.LabelThresh == 0 {
		s.LabelThresh = 0.002
	}
	if s.Estimators == 0 {
		s.Estimators = 1000
	}
	if s.LearningRate == 0 {
		s.LearningRate = 0.1
	}
	if s.MaxDepth == 0 {
		s.MaxDepth = 6
	}
	if s.Patience == 0 {
		s.Patience = 10
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	return strings.Split(v, ",")
}

func getPairsFromEnvOrConfig(configPairs []string) []string {
	if env := os.Getenv("PAIRS"); env != "" {
		return strings.Split(env, ",")
	}
	if len(configPairs) > 0 {
		return configPairs
	}
	return []string{"BTCUSDT"}
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values.
func validateSettings(s *Settings) error {
	if len(s.Pairs) == 0 {
		return fmt.Errorf("at least one pair must be specified")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if s.WsURL == "" {
		return fmt.Errorf("WebSocket URL cannot be empty")
	}
	if s.Ping < time.Second || s.Ping > 5*time.Minute {
		return fmt.Errorf("ping interval must be between 1s and 5m, got %v", s.Ping)
	}
	if s.FeedTimeout < time.Second || s.FeedTimeout > time.Minute {
		return fmt.Errorf("feed timeout must be between 1s and 1m, got %v", s.FeedTimeout)
	}
	if s.MetricsPort < 1024 || s.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", s.MetricsPort)
	}
	if s.TrainRows < 100 || s.TrainRows > 100000 {
		return fmt.Errorf("train rows must be between 100 and 100000, got %d", s.TrainRows)
	}
	if s.SplitFraction <= 0 || s.SplitFraction >= 1 {
		return fmt.Errorf("split fraction must be between 0 and 1 exclusive, got %f", s.SplitFraction)
	}
	if s.WeightFactor < 0 || s.WeightFactor > 100 {
		return fmt.Errorf("weight factor must be between 0 and 100, got %f", s.WeightFactor)
	}
	if s.LabelPeriod <= 0 || s.LabelPeriod > 1000 {
		return fmt.Errorf("label period must be between 1 and 1000, got %d", s.LabelPeriod)
	}
	if s.LabelThresh <= 0 || s.LabelThresh > 1 {
		return fmt.Errorf("label threshold must be between 0 and 1, got %f", s.LabelThresh)
	}
	if s.Estimators <= 0 || s.Estimators > 100000 {
		return fmt.Errorf("estimators must be between 1 and 100000, got %d", s.Estimators)
	}
	if s.LearningRate <= 0 || s.LearningRate > 1 {
		return fmt.Errorf("learning rate must be between 0 and 1, got %f", s.LearningRate)
	}
	if s.MaxDepth <= 0 || s.MaxDepth > 64 {
		return fmt.Errorf("max depth must be between 1 and 64, got %d", s.MaxDepth)
	}
	if s.Patience <= 0 || s.Patience > 10000 {
		return fmt.Errorf("patience must be between 1 and 10000, got %d", s.Patience)
	}
	return nil
}
