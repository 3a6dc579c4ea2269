package points

import (
	"pgregory.net/rapid"
	"time"

	ltime "github.com/fittrack/fitness-tracker-api/pkg/time"
)

func keyGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z][a-z0-9_]{0,11}`).Filter(func(s string) bool {
		return s != reservedKey
	})
}

func measurementGenerator() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		MeasurementBodyWeight,
		MeasurementWorkoutVolume,
		MeasurementExerciseMax,
		MeasurementWorkoutCount,
		"resting_heart_rate",
	})
}

// MetricPointGenerator draws valid points with timestamps at or before now.
func MetricPointGenerator(now time.Time) *rapid.Generator[MetricPoint] {
	return rapid.Custom(func(t *rapid.T) MetricPoint {
		return MetricPoint{
			Measurement: measurementGenerator().Draw(t, "measurement"),
			Tags:        rapid.MapOfN(keyGenerator(), rapid.StringMatching(`[a-z0-9-]{1,8}`), 0, 4).Draw(t, "tags"),
			Fields: rapid.MapOfN(keyGenerator(), rapid.Float64Range(-1e9, 1e9), 1, 4).
				Draw(t, "fields"),
			Timestamp: ltime.TimeAroundGenerator(now, 90*24*time.Hour, 0).Draw(t, "timestamp"),
		}
	})
}

// RawPointGenerator draws inputs that Validate accepts.
func RawPointGenerator(now time.Time) *rapid.Generator[RawPoint] {
	return rapid.Custom(func(t *rapid.T) RawPoint {
		raw := MetricPointGenerator(now).Draw(t, "point").Raw()
		if rapid.Bool().Draw(t, "no_timestamp") {
			raw.Timestamp = nil
		}
		return raw
	})
}
