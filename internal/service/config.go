package service

import (
	"time"

	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
)

type Config struct {
	QueryTimeout time.Duration `env:"METRICS_QUERY_TIMEOUT" envDefault:"5s"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
