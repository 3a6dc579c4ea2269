package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/influxdata/influxdb1-client/models"
)

// Raw is a stream of InfluxDB responses. *client.ChunkedResponse implements it.
type Raw interface {
	NextResponse() (*client.Response, error)
	Close() error
}

// Row is one field value. GroupKey holds the grouping tags of an aggregated query; Tags
// holds every tag of the record a raw query returned.
type Row struct {
	GroupKey  map[string]string `json:"group_key,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Field     string            `json:"field"`
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
}

// ResultError is an error reported by the backend inside an otherwise valid response.
type ResultError struct {
	Message string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("query failed: %s", e.Message)
}

// Rows is a single pass cursor over a query result. Responses are decoded as Next asks
// for them, so a large result is never held in memory at once.
type Rows struct {
	raw     Raw
	spec    Spec
	pending []Row
	current Row
	err     error
	closed  bool
}

// Parse wraps raw into a cursor. The cursor closes raw once it is exhausted or fails.
func Parse(raw Raw, spec Spec) *Rows {
	return &Rows{raw: raw, spec: spec}
}

func (r *Rows) Next() bool {
	for len(r.pending) == 0 {
		if r.closed || r.err != nil {
			return false
		}
		resp, err := r.raw.NextResponse()
		if err == io.EOF {
			r.Close()
			return false
		}
		if err != nil {
			r.fail(err)
			return false
		}
		if resp == nil {
			r.Close()
			return false
		}
		if err := resp.Error(); err != nil {
			r.fail(&ResultError{Message: err.Error()})
			return false
		}
		rows, err := r.decode(resp)
		if err != nil {
			r.fail(err)
			return false
		}
		r.pending = rows
	}

	r.current = r.pending[0]
	r.pending = r.pending[1:]
	return true
}

func (r *Rows) Row() Row {
	return r.current
}

func (r *Rows) Err() error {
	return r.err
}

func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.pending = nil
	return r.raw.Close()
}

func (r *Rows) fail(err error) {
	r.err = err
	r.Close()
}

func (r *Rows) decode(resp *client.Response) ([]Row, error) {
	rows := make([]Row, 0)
	for _, result := range resp.Results {
		for _, series := range result.Series {
			decoded, err := r.decodeSeries(series)
			if err != nil {
				return nil, err
			}
			rows = append(rows, decoded...)
		}
	}
	return rows, nil
}

func (r *Rows) decodeSeries(series models.Row) ([]Row, error) {
	timeColumn := -1
	fields := make([]string, len(series.Columns))
	for i, column := range series.Columns {
		if column == "time" {
			timeColumn = i
			continue
		}
		fields[i] = r.fieldName(column)
	}
	if timeColumn < 0 {
		return nil, fmt.Errorf("series %s has no time column", series.Name)
	}

	rows := make([]Row, 0, len(series.Values)*(len(series.Columns)-1))
	for _, values := range series.Values {
		if len(values) != len(series.Columns) {
			return nil, fmt.Errorf("series %s has %d values for %d columns", series.Name, len(values), len(series.Columns))
		}
		timestamp, err := parseTime(values[timeColumn])
		if err != nil {
			return nil, err
		}
		aggregated := r.spec.Aggregation.IsAggregate()
		if aggregated && timestamp.Before(r.spec.TimeRange.Start) {
			// Buckets are aligned to the interval, so the first one may start before the range
			timestamp = r.spec.TimeRange.Start.UTC()
		}
		var tags map[string]string
		if !aggregated {
			tags = recordTags(series.Columns, values, timeColumn)
		}
		for i, value := range values {
			if i == timeColumn || value == nil {
				continue
			}
			if _, ok := value.(string); ok && !aggregated {
				continue
			}
			number, err := parseValue(value)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", series.Columns[i], err)
			}
			rows = append(rows, Row{
				GroupKey:  copyTags(series.Tags),
				Tags:      tags,
				Field:     fields[i],
				Timestamp: timestamp,
				Value:     number,
			})
		}
	}
	return rows, nil
}

func (r *Rows) fieldName(column string) string {
	if r.spec.Field == "" && r.spec.Aggregation.IsAggregate() {
		return strings.TrimPrefix(column, string(r.spec.Aggregation)+"_")
	}
	return column
}

// recordTags collects the string columns of a raw record. Every stored field is numeric, so
// those are the tag columns selected with *::tag.
func recordTags(columns []string, values []interface{}, timeColumn int) map[string]string {
	var tags map[string]string
	for i, value := range values {
		str, ok := value.(string)
		if !ok || i == timeColumn {
			continue
		}
		if tags == nil {
			tags = make(map[string]string)
		}
		tags[columns[i]] = str
	}
	return tags
}

func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	ret := make(map[string]string, len(tags))
	for k, v := range tags {
		ret[k] = v
	}
	return ret
}

func parseTime(value interface{}) (time.Time, error) {
	switch typed := value.(type) {
	case json.Number:
		ns, err := strconv.ParseInt(typed.String(), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch time %q: %w", typed.String(), err)
		}
		return time.Unix(0, ns).UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, typed)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q: %w", typed, err)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected time value of type %T", value)
	}
}

func parseValue(value interface{}) (float64, error) {
	switch typed := value.(type) {
	case json.Number:
		return typed.Float64()
	case float64:
		return typed, nil
	default:
		return 0, fmt.Errorf("unexpected value of type %T", value)
	}
}
