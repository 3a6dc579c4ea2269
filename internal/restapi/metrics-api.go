package restapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/schema"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/query"
	"github.com/fittrack/fitness-tracker-api/internal/service"
	"github.com/fittrack/fitness-tracker-api/internal/writebuffer"
	lhttp "github.com/fittrack/fitness-tracker-api/pkg/http"
	ltime "github.com/fittrack/fitness-tracker-api/pkg/time"
)

// tagParamPrefix marks query parameters that filter on a tag, as in tag.user_id=42.
const tagParamPrefix = "tag."

type Metrics interface {
	Ingest(ctx context.Context, raw points.RawPoint) (service.Accepted, error)
	Query(ctx context.Context, spec query.Spec) (*query.Rows, error)
	Stats() writebuffer.Stats
}

var _ Metrics = &service.MetricsService{}

type MetricsAPI struct {
	cfg     *Config
	metrics Metrics
	watch   ltime.Watch
	decoder *schema.Decoder
}

func NewMetricsAPI(cfg *Config, metrics Metrics, watch ltime.Watch) *MetricsAPI {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &MetricsAPI{
		cfg:     cfg,
		metrics: metrics,
		watch:   watch,
		decoder: decoder,
	}
}

func (m *MetricsAPI) ingest(ctx context.Context, raw points.RawPoint) (*service.Accepted, *lhttp.HttpError) {
	accepted, err := m.metrics.Ingest(ctx, raw)
	if err != nil {
		return nil, ToHttpError(err)
	}
	return &accepted, nil
}

func (m *MetricsAPI) PostMetric(ctx context.Context, raw *points.RawPoint) (*service.Accepted, *lhttp.HttpError) {
	if raw == nil {
		return nil, lhttp.NewBadRequest("body is required")
	}
	return m.ingest(ctx, *raw)
}

type BodyWeightRequest struct {
	UserID    string     `json:"user_id"`
	Weight    *float64   `json:"weight"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (m *MetricsAPI) PostBodyWeight(ctx context.Context, body *BodyWeightRequest) (*service.Accepted, *lhttp.HttpError) {
	if body == nil {
		return nil, lhttp.NewBadRequest("body is required")
	}
	if err := requireID("user_id", body.UserID); err != nil {
		return nil, err
	}
	if err := requireRange("weight", body.Weight, 1, 500); err != nil {
		return nil, err
	}
	return m.ingest(ctx, points.RawPoint{
		Measurement: points.MeasurementBodyWeight,
		Tags:        map[string]interface{}{points.TagUserID: body.UserID},
		Fields:      map[string]interface{}{"weight": *body.Weight},
		Timestamp:   body.Timestamp,
	})
}

type WorkoutVolumeRequest struct {
	UserID      string     `json:"user_id"`
	WorkoutID   string     `json:"workout_id"`
	TotalVolume *float64   `json:"total_volume"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

func (m *MetricsAPI) PostWorkoutVolume(ctx context.Context, body *WorkoutVolumeRequest) (*service.Accepted, *lhttp.HttpError) {
	if body == nil {
		return nil, lhttp.NewBadRequest("body is required")
	}
	if err := requireID("user_id", body.UserID); err != nil {
		return nil, err
	}
	if err := requireID("workout_id", body.WorkoutID); err != nil {
		return nil, err
	}
	if err := requireMin("total_volume", body.TotalVolume, 0); err != nil {
		return nil, err
	}
	return m.ingest(ctx, points.RawPoint{
		Measurement: points.MeasurementWorkoutVolume,
		Tags: map[string]interface{}{
			points.TagUserID:    body.UserID,
			points.TagWorkoutID: body.WorkoutID,
		},
		Fields:    map[string]interface{}{"total_volume": *body.TotalVolume},
		Timestamp: body.Timestamp,
	})
}

type ExerciseMaxRequest struct {
	UserID     string     `json:"user_id"`
	ExerciseID string     `json:"exercise_id"`
	MaxWeight  *float64   `json:"max_weight"`
	Reps       *float64   `json:"reps"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

func (m *MetricsAPI) PostExerciseMax(ctx context.Context, body *ExerciseMaxRequest) (*service.Accepted, *lhttp.HttpError) {
	if body == nil {
		return nil, lhttp.NewBadRequest("body is required")
	}
	if err := requireID("user_id", body.UserID); err != nil {
		return nil, err
	}
	if err := requireID("exercise_id", body.ExerciseID); err != nil {
		return nil, err
	}
	if err := requireMin("max_weight", body.MaxWeight, 0); err != nil {
		return nil, err
	}
	if err := requireMin("reps", body.Reps, 1); err != nil {
		return nil, err
	}
	if *body.Reps != float64(int64(*body.Reps)) {
		return nil, invalidField("reps", "must be a whole number")
	}
	return m.ingest(ctx, points.RawPoint{
		Measurement: points.MeasurementExerciseMax,
		Tags: map[string]interface{}{
			points.TagUserID:     body.UserID,
			points.TagExerciseID: body.ExerciseID,
		},
		Fields: map[string]interface{}{
			"max_weight": *body.MaxWeight,
			"reps":       *body.Reps,
		},
		Timestamp: body.Timestamp,
	})
}

type WorkoutCountRequest struct {
	UserID    string     `json:"user_id"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (m *MetricsAPI) PostWorkoutCount(ctx context.Context, body *WorkoutCountRequest) (*service.Accepted, *lhttp.HttpError) {
	if body == nil {
		return nil, lhttp.NewBadRequest("body is required")
	}
	if err := requireID("user_id", body.UserID); err != nil {
		return nil, err
	}
	return m.ingest(ctx, points.RawPoint{
		Measurement: points.MeasurementWorkoutCount,
		Tags:        map[string]interface{}{points.TagUserID: body.UserID},
		Fields:      map[string]interface{}{"count": 1},
		Timestamp:   body.Timestamp,
	})
}

// QueryParams is the query string of GET /api/metrics/query. Tag filters are read
// separately from the tag.<name> parameters.
type QueryParams struct {
	Measurement string   `schema:"measurement"`
	Field       string   `schema:"field"`
	Start       string   `schema:"start"`
	End         string   `schema:"end"`
	Aggregation string   `schema:"aggregation"`
	GroupBy     []string `schema:"group_by"`
	Interval    string   `schema:"interval"`
}

// ParseQuery turns a query string into a spec. A missing end means now and a missing start
// means DefaultQueryWindow before the end.
func (m *MetricsAPI) ParseQuery(values url.Values) (query.Spec, *lhttp.HttpError) {
	var params QueryParams
	if err := m.decoder.Decode(&params, values); err != nil {
		return query.Spec{}, lhttp.NewBadRequest(fmt.Sprintf("invalid query parameters: %s", err))
	}

	spec := query.Spec{
		Measurement: params.Measurement,
		Field:       params.Field,
	}

	var err error
	if spec.Aggregation, err = query.ParseAggregation(params.Aggregation); err != nil {
		return query.Spec{}, ToHttpError(&query.InvalidRangeError{Reason: err.Error()})
	}

	spec.TimeRange.End = m.watch.Now()
	if params.End != "" {
		if spec.TimeRange.End, err = time.Parse(time.RFC3339Nano, params.End); err != nil {
			return query.Spec{}, ToHttpError(&query.InvalidRangeError{Reason: fmt.Sprintf("end %q is not an RFC 3339 time", params.End)})
		}
	}
	spec.TimeRange.Start = spec.TimeRange.End.Add(-m.cfg.DefaultQueryWindow)
	if params.Start != "" {
		if spec.TimeRange.Start, err = time.Parse(time.RFC3339Nano, params.Start); err != nil {
			return query.Spec{}, ToHttpError(&query.InvalidRangeError{Reason: fmt.Sprintf("start %q is not an RFC 3339 time", params.Start)})
		}
	}

	if params.Interval != "" {
		if spec.Interval, err = time.ParseDuration(params.Interval); err != nil {
			return query.Spec{}, ToHttpError(&query.InvalidRangeError{Reason: fmt.Sprintf("interval %q is not a duration", params.Interval)})
		}
	}

	for _, group := range params.GroupBy {
		for _, tag := range strings.Split(group, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				spec.GroupBy = append(spec.GroupBy, tag)
			}
		}
	}

	for key, vals := range values {
		if !strings.HasPrefix(key, tagParamPrefix) || len(vals) == 0 {
			continue
		}
		if spec.TagFilters == nil {
			spec.TagFilters = make(map[string]string)
		}
		spec.TagFilters[strings.TrimPrefix(key, tagParamPrefix)] = vals[len(vals)-1]
	}

	return spec, nil
}

// QueryMetrics runs the query described by values. The caller must close the rows.
func (m *MetricsAPI) QueryMetrics(ctx context.Context, values url.Values) (*query.Rows, *lhttp.HttpError) {
	spec, herr := m.ParseQuery(values)
	if herr != nil {
		return nil, herr
	}

	rows, err := m.metrics.Query(ctx, spec)
	if err != nil {
		return nil, ToHttpError(err)
	}
	return rows, nil
}

func (m *MetricsAPI) GetStats(ctx context.Context) (*writebuffer.Stats, *lhttp.HttpError) {
	stats := m.metrics.Stats()
	return &stats, nil
}

func (m *MetricsAPI) Shutdown() error {
	return nil
}

func invalidField(field, reason string) *lhttp.HttpError {
	return ToHttpError(&points.ValidationError{Field: field, Reason: reason})
}

func requireID(field, value string) *lhttp.HttpError {
	if value == "" {
		return invalidField(field, "is required")
	}
	return nil
}

func requireMin(field string, value *float64, lowest float64) *lhttp.HttpError {
	if value == nil {
		return invalidField(field, "is required")
	}
	if *value < lowest {
		return invalidField(field, fmt.Sprintf("must be at least %g", lowest))
	}
	return nil
}

func requireRange(field string, value *float64, lowest, highest float64) *lhttp.HttpError {
	if err := requireMin(field, value, lowest); err != nil {
		return err
	}
	if *value > highest {
		return invalidField(field, fmt.Sprintf("must be at most %g", highest))
	}
	return nil
}
