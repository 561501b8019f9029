package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lazypower/retention/internal/recommend"
	"gopkg.in/yaml.v3"
)

// Config holds all retention configuration.
type Config struct {
	Server      ServerConfig         `yaml:"server"`
	Database    DatabaseConfig       `yaml:"database"`
	Classifier  ClassifierConfig     `yaml:"classifier"`
	Thresholds  recommend.Thresholds `yaml:"thresholds"`
	Memory      MemoryConfig         `yaml:"memory"`
	Results     ResultsConfig        `yaml:"results"`
	Kafka       KafkaConfig          `yaml:"kafka"`
	Maintenance MaintenanceConfig    `yaml:"maintenance"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // empty: resolved at runtime via store.DefaultDBPath()
}

type ClassifierConfig struct {
	Provider    string        `yaml:"provider"` // "inference", "ollama", "anthropic", "lexicon"
	URL         string        `yaml:"url"`      // inference endpoint or ollama base URL
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxInputLen int           `yaml:"max_input_len"`
}

type MemoryConfig struct {
	// Retain is how many entries per session the maintenance job keeps on disk.
	Retain int `yaml:"retain"`
}

type ResultsConfig struct {
	Path string `yaml:"path"` // empty disables the JSON result log
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // empty disables publishing
	Topic   string   `yaml:"topic"`
}

type MaintenanceConfig struct {
	Schedule   string `yaml:"schedule"`    // cron expression with seconds; empty disables the job
	MessageLog string `yaml:"message_log"` // role/content JSON file to clean
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37780,
		},
		Classifier: ClassifierConfig{
			Provider:    "lexicon",
			Model:       "j-hartmann/emotion-english-distilroberta-base",
			Timeout:     30 * time.Second,
			MaxInputLen: 512,
		},
		Thresholds: recommend.DefaultThresholds(),
		Memory: MemoryConfig{
			Retain: 200,
		},
		Results: ResultsConfig{
			Path: "data/results.json",
		},
		Kafka: KafkaConfig{
			Topic: "retention-decisions",
		},
		Maintenance: MaintenanceConfig{
			Schedule: "0 0 3 * * *",
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
			if err := checkThresholdsGroup(data); err != nil {
				return cfg, fmt.Errorf("config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Thresholds.Validate(); err != nil {
		return cfg, fmt.Errorf("thresholds: %w", err)
	}
	return cfg, nil
}

// checkThresholdsGroup requires a thresholds block to set all three
// cutoffs. They are only meaningful together.
func checkThresholdsGroup(data []byte) error {
	var raw struct {
		Thresholds *struct {
			Escalate *float64 `yaml:"escalate"`
			Defuse   *float64 `yaml:"defuse"`
			CheckIn  *float64 `yaml:"checkin"`
		} `yaml:"thresholds"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	t := raw.Thresholds
	if t == nil {
		return nil
	}
	if t.Escalate == nil || t.Defuse == nil || t.CheckIn == nil {
		return fmt.Errorf("thresholds: escalate, defuse and checkin must be set together")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RETENTION_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("RETENTION_CLASSIFIER_URL"); v != "" {
		c.Classifier.URL = v
		if c.Classifier.Provider == "lexicon" {
			c.Classifier.Provider = "inference"
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.Classifier.Provider == "anthropic" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv("RETENTION_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
