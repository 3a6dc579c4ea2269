package restapi

import (
	"time"

	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
)

type Config struct {
	// DefaultQueryWindow is how far back a query without a start looks.
	DefaultQueryWindow time.Duration `env:"METRICS_DEFAULT_QUERY_WINDOW" envDefault:"720h"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
