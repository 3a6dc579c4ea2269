package query

import (
	"fmt"
	"strings"
	"time"
)

type Aggregation string

const (
	AggregationNone  Aggregation = "none"
	AggregationMean  Aggregation = "mean"
	AggregationSum   Aggregation = "sum"
	AggregationMax   Aggregation = "max"
	AggregationMin   Aggregation = "min"
	AggregationCount Aggregation = "count"
)

var aggregations = map[Aggregation]bool{
	AggregationNone:  true,
	AggregationMean:  true,
	AggregationSum:   true,
	AggregationMax:   true,
	AggregationMin:   true,
	AggregationCount: true,
}

// ParseAggregation accepts the aggregation names case-insensitively; an empty string means none.
func ParseAggregation(s string) (Aggregation, error) {
	if s == "" {
		return AggregationNone, nil
	}
	agg := Aggregation(strings.ToLower(s))
	if !aggregations[agg] {
		return "", fmt.Errorf("unknown aggregation %q", s)
	}
	return agg, nil
}

func (a Aggregation) IsAggregate() bool {
	return a != AggregationNone && a != ""
}

// TimeRange is half open: Start is included and End is excluded.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

type Spec struct {
	Measurement string
	// Field restricts the result to a single field. Empty selects every field.
	Field       string
	TagFilters  map[string]string
	TimeRange   TimeRange
	Aggregation Aggregation
	GroupBy     []string
	// Interval buckets aggregated values. Zero aggregates the whole range into one bucket.
	Interval time.Duration
}

type InvalidRangeError struct {
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

func invalidSpec(format string, args ...interface{}) *InvalidRangeError {
	return &InvalidRangeError{Reason: fmt.Sprintf(format, args...)}
}

// Validate reports the first reason the spec cannot be composed.
func (s Spec) Validate() error {
	if s.Measurement == "" {
		return invalidSpec("measurement must not be empty")
	}
	if s.TimeRange.Start.IsZero() || s.TimeRange.End.IsZero() {
		return invalidSpec("start and end are required")
	}
	if !s.TimeRange.Start.Before(s.TimeRange.End) {
		return invalidSpec("start %s must be before end %s",
			s.TimeRange.Start.Format(time.RFC3339Nano), s.TimeRange.End.Format(time.RFC3339Nano))
	}
	if s.Aggregation != "" && !aggregations[s.Aggregation] {
		return invalidSpec("unknown aggregation %q", s.Aggregation)
	}
	if len(s.GroupBy) > 0 && !s.Aggregation.IsAggregate() {
		return invalidSpec("group by requires an aggregation")
	}
	if s.Interval < 0 {
		return invalidSpec("interval must not be negative")
	}
	if s.Interval > 0 && !s.Aggregation.IsAggregate() {
		return invalidSpec("interval requires an aggregation")
	}
	if s.Interval > 0 && s.Interval%time.Microsecond != 0 {
		return invalidSpec("interval must be a whole number of microseconds")
	}
	for _, tag := range s.GroupBy {
		if tag == "" {
			return invalidSpec("group by tag must not be empty")
		}
	}
	for tag := range s.TagFilters {
		if tag == "" {
			return invalidSpec("tag filter key must not be empty")
		}
	}
	return nil
}
