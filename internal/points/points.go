package points

import (
	"time"
)

// RawPoint is an unvalidated point as decoded from a request body. Field values may be any
// JSON number representation; tag values must be strings.
type RawPoint struct {
	Measurement string                 `json:"measurement"`
	Tags        map[string]interface{} `json:"tags,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
	Timestamp   *time.Time             `json:"timestamp,omitempty"`
}

// MetricPoint is a validated point. Values produced by Validate are never modified
// afterwards; use Copy before handing one to code that may mutate it.
type MetricPoint struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]float64
	Timestamp   time.Time
}

func (p MetricPoint) Copy() MetricPoint {
	tags := make(map[string]string, len(p.Tags))
	for k, v := range p.Tags {
		tags[k] = v
	}
	fields := make(map[string]float64, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	return MetricPoint{
		Measurement: p.Measurement,
		Tags:        tags,
		Fields:      fields,
		Timestamp:   p.Timestamp,
	}
}

// Raw converts the point back into its unvalidated form.
func (p MetricPoint) Raw() RawPoint {
	raw := RawPoint{
		Measurement: p.Measurement,
		Tags:        make(map[string]interface{}, len(p.Tags)),
		Fields:      make(map[string]interface{}, len(p.Fields)),
	}
	for k, v := range p.Tags {
		raw.Tags[k] = v
	}
	for k, v := range p.Fields {
		raw.Fields[k] = v
	}
	ts := p.Timestamp
	raw.Timestamp = &ts
	return raw
}

// Well known measurements recorded by the typed endpoints.
const (
	MeasurementBodyWeight    = "body_weight"
	MeasurementWorkoutVolume = "workout_volume"
	MeasurementExerciseMax   = "exercise_max"
	MeasurementWorkoutCount  = "workout_count"
)

// Well known tag keys. Identifiers are owned by the document store and treated as opaque.
const (
	TagUserID     = "user_id"
	TagWorkoutID  = "workout_id"
	TagExerciseID = "exercise_id"
)
