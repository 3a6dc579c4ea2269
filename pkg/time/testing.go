package ltime

import (
	"time"

	"pgregory.net/rapid"
)

var times = []string{
	"2024-01-01T00:00:00Z",
	"2024-03-15T06:30:00Z",
	"2024-06-01T12:00:00Z",
	"2024-11-30T23:59:59.999999999Z",
}

var durations = []string{
	"1s",
	"1m",
	"15m",
	"1h",
	"24h",
}

var timeSampler *rapid.Generator[time.Time]
var durationSampler *rapid.Generator[time.Duration]

func init() {
	timeGenerators := make([]*rapid.Generator[time.Time], 0)
	for _, time_ := range times {
		parsed, err := time.Parse(time.RFC3339Nano, time_)
		if err != nil {
			panic(err)
		}
		timeGenerators = append(timeGenerators, rapid.Just(parsed))
	}
	timeSampler = rapid.OneOf(timeGenerators...)

	durationGenerators := make([]*rapid.Generator[time.Duration], 0)
	for _, dd := range durations {
		parsed, err := time.ParseDuration(dd)
		if err != nil {
			panic(err)
		}
		durationGenerators = append(durationGenerators, rapid.Just(parsed))
	}
	durationSampler = rapid.OneOf(durationGenerators...)
}

// TestingTimeGenerator samples a handful of fixed UTC instants.
func TestingTimeGenerator() *rapid.Generator[time.Time] {
	return timeSampler
}

func TestingDurationGenerator() *rapid.Generator[time.Duration] {
	return durationSampler
}

// TimeAroundGenerator draws an instant within [base-before, base+after] at nanosecond precision.
func TimeAroundGenerator(base time.Time, before, after time.Duration) *rapid.Generator[time.Time] {
	return rapid.Custom(func(t *rapid.T) time.Time {
		offset := rapid.Int64Range(-int64(before), int64(after)).Draw(t, "offset")
		return base.Add(time.Duration(offset)).UTC()
	})
}
