package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string       `yaml:"env" env-default:"prod"`
	Targets TargetsRef   `yaml:"targets"`
	Sender  SenderConfig `yaml:"sender"`
	Buffer  BufferConfig `yaml:"buffer"`
	HTTP    HTTPConfig   `yaml:"http"`
	Log     LogConfig    `yaml:"log"`
}

type TargetsRef struct {
	ConfigPath string `yaml:"config_path" env:"TARGETS_CONFIG_PATH" env-required:"true"`
}

type SenderConfig struct {
	URL     string        `yaml:"url" env:"SENDER_URL" env-required:"true"`
	Token   string        `yaml:"token" env:"SENDER_TOKEN" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"30s"`
	Retry   RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" env-default:"5"`
	InitialDelay time.Duration `yaml:"initial_delay" env-default:"1s"`
	MaxDelay     time.Duration `yaml:"max_delay" env-default:"60s"`
}

type BufferConfig struct {
	Enabled bool          `yaml:"enabled" env:"BUFFER_ENABLED"`
	Path    string        `yaml:"path" env-default:"/var/lib/gauge/buffer.db"`
	MaxAge  time.Duration `yaml:"max_age" env-default:"24h"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}
