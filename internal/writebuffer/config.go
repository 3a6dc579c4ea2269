package writebuffer

import (
	"time"

	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
)

type Config struct {
	BatchSize      int           `env:"WRITE_BUFFER_BATCH_SIZE" envDefault:"500"`
	FlushInterval  time.Duration `env:"WRITE_BUFFER_FLUSH_INTERVAL" envDefault:"1s"`
	QueueCapacity  int           `env:"WRITE_BUFFER_QUEUE_CAPACITY" envDefault:"10000"`
	RetryAttempts  uint          `env:"WRITE_BUFFER_RETRY_ATTEMPTS" envDefault:"5"`
	RetryBaseDelay time.Duration `env:"WRITE_BUFFER_RETRY_BASE_DELAY" envDefault:"200ms"`
	RetryMaxDelay  time.Duration `env:"WRITE_BUFFER_RETRY_MAX_DELAY" envDefault:"5s"`

	// OnFlush, when set, observes the outcome of every flush, including the ones run by Drain.
	OnFlush func(FlushResult)
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.QueueCapacity < c.BatchSize {
		c.QueueCapacity = c.BatchSize
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 1
	}
}
