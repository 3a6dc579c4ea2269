package docstore

import (
	"time"

	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
)

type Config struct {
	ConfigSecrets

	URL            string        `env:"MONGODB_URL" envDefault:"mongodb://localhost:27017"`
	DatabaseName   string        `env:"MONGODB_DB_NAME" envDefault:"fitness_tracker"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	ConfigLocation string        `env:"MONGODB_CONFIG_LOCATION"`
}

type ConfigSecrets struct {
	Username string `env:"MONGODB_USERNAME" json:"username"`
	Password string `env:"MONGODB_PASSWORD" json:"password"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}

	if err := lconfig.OverlayYamlConfig(cfg.ConfigLocation, &cfg.ConfigSecrets); err != nil {
		return nil, err
	}
	return &cfg, nil
}
