package query

import (
	"bytes"
	"encoding/json"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/influxdata/influxdb1-client/models"
	"pgregory.net/rapid"
)

// NewTestingRaw streams responses the way the backend would in chunked mode.
func NewTestingRaw(responses ...client.Response) *client.ChunkedResponse {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, resp := range responses {
		if err := enc.Encode(resp); err != nil {
			panic(err)
		}
	}
	return client.NewChunkedResponse(&buf)
}

// SeriesResponse builds a single result response out of series.
func SeriesResponse(series ...models.Row) client.Response {
	return client.Response{
		Results: []client.Result{{Series: series}},
	}
}

// RangeGenerator draws a non empty range.
func RangeGenerator(base time.Time) *rapid.Generator[TimeRange] {
	return rapid.Custom(func(t *rapid.T) TimeRange {
		start := base.Add(time.Duration(rapid.Int64Range(-int64(24*time.Hour), int64(24*time.Hour)).Draw(t, "start_offset")))
		length := time.Duration(rapid.Int64Range(1, int64(30*24*time.Hour)).Draw(t, "length"))
		return TimeRange{Start: start.UTC(), End: start.Add(length).UTC()}
	})
}

func tagNameGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z][a-z_]{0,9}`)
}

// SpecGenerator draws specs that Compose accepts.
func SpecGenerator(base time.Time) *rapid.Generator[Spec] {
	return rapid.Custom(func(t *rapid.T) Spec {
		spec := Spec{
			Measurement: rapid.StringMatching(`[a-z][a-z_]{0,15}`).Draw(t, "measurement"),
			Field:       rapid.SampledFrom([]string{"", "weight", "total_volume", "max_weight"}).Draw(t, "field"),
			TagFilters:  rapid.MapOfN(tagNameGenerator(), rapid.String(), 0, 3).Draw(t, "tag_filters"),
			TimeRange:   RangeGenerator(base).Draw(t, "range"),
			Aggregation: rapid.SampledFrom([]Aggregation{
				AggregationNone, AggregationMean, AggregationSum, AggregationMax, AggregationMin, AggregationCount,
			}).Draw(t, "aggregation"),
		}
		if spec.Aggregation.IsAggregate() {
			spec.GroupBy = rapid.SliceOfNDistinct(tagNameGenerator(), 0, 2, rapid.ID[string]).Draw(t, "group_by")
			spec.Interval = rapid.SampledFrom([]time.Duration{0, time.Minute, time.Hour, 24 * time.Hour}).Draw(t, "interval")
		}
		return spec
	})
}
