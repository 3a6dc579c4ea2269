package tsdb

import (
	"time"

	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
)

type Config struct {
	URL             string `env:"INFLUXDB_URL" envDefault:"http://localhost:8086"`
	Token           string `env:"INFLUXDB_TOKEN"`
	Username        string `env:"INFLUXDB_USERNAME"`
	Org             string `env:"INFLUXDB_ORG" envDefault:"fitness-org"`
	Bucket          string `env:"INFLUXDB_BUCKET" envDefault:"fitness-metrics"`
	RetentionPolicy string `env:"INFLUXDB_RETENTION_POLICY"`
	// CredentialsFile is a YAML document with token and username keys
	CredentialsFile     string        `env:"INFLUX_CONFIG_LOCATION"`
	WriteTimeout        time.Duration `env:"INFLUXDB_WRITE_TIMEOUT" envDefault:"10s"`
	QueryTimeout        time.Duration `env:"INFLUXDB_QUERY_TIMEOUT" envDefault:"5s"`
	PingTimeout         time.Duration `env:"INFLUXDB_PING_TIMEOUT" envDefault:"2s"`
	QueryChunkSize      int           `env:"INFLUXDB_QUERY_CHUNK_SIZE" envDefault:"1000"`
	UnavailableCooldown time.Duration `env:"INFLUXDB_UNAVAILABLE_COOLDOWN" envDefault:"2s"`
}

type credentials struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}

	var creds credentials
	if err := lconfig.OverlayYamlConfig(cfg.CredentialsFile, &creds); err != nil {
		return nil, err
	}
	if creds.Token != "" {
		cfg.Token = creds.Token
	}
	if creds.Username != "" {
		cfg.Username = creds.Username
	}
	return &cfg, nil
}

// basicAuth maps the token onto the v1 compatibility API, where any username is accepted
// alongside a token used as password.
func (cfg *Config) basicAuth() (string, string) {
	if cfg.Token == "" {
		return cfg.Username, ""
	}
	if cfg.Username == "" {
		return cfg.Org, cfg.Token
	}
	return cfg.Username, cfg.Token
}
