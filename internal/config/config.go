package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"3001"`

	PingInterval time.Duration `yaml:"ping-interval" env:"PING_INTERVAL" env-default:"30s"`

	RateLimit RateLimit `yaml:"rate-limit"`
}

type RateLimit struct {
	PerSecond float64 `yaml:"per-second" env:"RATE_LIMIT_PER_SECOND" env-default:"20"`
	Burst     int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"40"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}
