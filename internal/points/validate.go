package points

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/influxdata/influxdb1-client/models"

	lconfig "github.com/fittrack/fitness-tracker-api/pkg/config"
	ltime "github.com/fittrack/fitness-tracker-api/pkg/time"
)

// reservedKey is the column name the time-series backend uses for the timestamp.
const reservedKey = "time"

type Config struct {
	MaxFutureSkew time.Duration `env:"METRICS_MAX_FUTURE_SKEW" envDefault:"24h"`
}

func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	err := lconfig.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid point: %s", e.Reason)
	}
	return fmt.Sprintf("invalid point: %s %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type Validator struct {
	maxFutureSkew time.Duration
	watch         ltime.Watch
}

func NewValidator(cfg *Config, watch ltime.Watch) *Validator {
	return &Validator{
		maxFutureSkew: cfg.MaxFutureSkew,
		watch:         watch,
	}
}

func NewWallValidator(cfg *Config) *Validator {
	return NewValidator(cfg, ltime.NewWallWatch())
}

// Validate checks raw and returns an owned MetricPoint. It has no side effects, and
// validating the Raw form of its own output yields an equal point.
func (v *Validator) Validate(raw RawPoint) (MetricPoint, error) {
	if raw.Measurement == "" {
		return MetricPoint{}, invalid("measurement", "must not be empty")
	}
	if err := checkText("measurement", raw.Measurement); err != nil {
		return MetricPoint{}, err
	}

	if len(raw.Fields) == 0 {
		return MetricPoint{}, invalid("fields", "must contain at least one entry")
	}
	fields := make(map[string]float64, len(raw.Fields))
	for key, value := range raw.Fields {
		if err := checkKey("fields", key); err != nil {
			return MetricPoint{}, err
		}
		number, err := toFloat(value)
		if err != nil {
			return MetricPoint{}, invalid("fields."+key, "%s", err)
		}
		fields[key] = number
	}

	tags := make(map[string]string, len(raw.Tags))
	for key, value := range raw.Tags {
		if err := checkKey("tags", key); err != nil {
			return MetricPoint{}, err
		}
		str, ok := value.(string)
		if !ok {
			return MetricPoint{}, invalid("tags."+key, "must be a string, got %T", value)
		}
		if str == "" {
			return MetricPoint{}, invalid("tags."+key, "must not be empty")
		}
		if err := checkText("tags."+key, str); err != nil {
			return MetricPoint{}, err
		}
		tags[key] = str
	}

	now := v.watch.Now()
	timestamp := now
	if raw.Timestamp != nil {
		timestamp = *raw.Timestamp
		if timestamp.After(now.Add(v.maxFutureSkew)) {
			return MetricPoint{}, invalid("timestamp", "is more than %s in the future", v.maxFutureSkew)
		}
		if models.CheckTime(timestamp) != nil {
			return MetricPoint{}, invalid("timestamp", "is outside the storable range")
		}
	}

	return MetricPoint{
		Measurement: raw.Measurement,
		Tags:        tags,
		Fields:      fields,
		Timestamp:   timestamp.UTC(),
	}, nil
}

func checkKey(group, key string) error {
	if key == "" {
		return invalid(group, "must not contain an empty key")
	}
	if key == reservedKey {
		return invalid(group+"."+key, "is a reserved key")
	}
	return checkText(group+"."+key, key)
}

// checkText rejects what the line protocol cannot carry: control characters end a line and
// a trailing backslash escapes the separator that follows.
func checkText(field, text string) error {
	if strings.IndexFunc(text, unicode.IsControl) >= 0 {
		return invalid(field, "must not contain control characters")
	}
	if strings.HasSuffix(text, `\`) {
		return invalid(field, "must not end with a backslash")
	}
	return nil
}

func toFloat(value interface{}) (float64, error) {
	var number float64
	switch typed := value.(type) {
	case float64:
		number = typed
	case float32:
		number = float64(typed)
	case int:
		number = float64(typed)
	case int32:
		number = float64(typed)
	case int64:
		number = float64(typed)
	case uint:
		number = float64(typed)
	case uint32:
		number = float64(typed)
	case uint64:
		number = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be numeric, got %q", typed.String())
		}
		number = parsed
	default:
		return 0, fmt.Errorf("must be numeric, got %T", value)
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, fmt.Errorf("must be finite")
	}
	return number, nil
}
