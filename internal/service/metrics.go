package service

import (
	"context"
	"io"
	"sync"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	log "github.com/sirupsen/logrus"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/query"
	"github.com/fittrack/fitness-tracker-api/internal/tsdb"
	"github.com/fittrack/fitness-tracker-api/internal/writebuffer"
)

// Accepted acknowledges a point that was buffered. It is not yet durable.
type Accepted struct {
	Measurement string    `json:"measurement"`
	Timestamp   time.Time `json:"timestamp"`
}

type MetricsService struct {
	cfg       *Config
	validator *points.Validator
	buffer    *writebuffer.Buffer
	backend   tsdb.Backend
}

func NewMetricsService(cfg *Config, validator *points.Validator, buffer *writebuffer.Buffer, backend tsdb.Backend) *MetricsService {
	return &MetricsService{
		cfg:       cfg,
		validator: validator,
		buffer:    buffer,
		backend:   backend,
	}
}

// Ingest validates raw and hands it to the write buffer. It never waits for the backend,
// so it keeps accepting points while the backend is down until the buffer fills up.
func (s *MetricsService) Ingest(ctx context.Context, raw points.RawPoint) (Accepted, error) {
	p, err := s.validator.Validate(raw)
	if err != nil {
		return Accepted{}, err
	}
	if err := s.buffer.Enqueue(p); err != nil {
		return Accepted{}, err
	}
	return Accepted{Measurement: p.Measurement, Timestamp: p.Timestamp}, nil
}

// Query runs spec with the configured timeout. The returned rows must be closed; the
// timeout keeps running while they are read.
func (s *MetricsService) Query(ctx context.Context, spec query.Spec) (*query.Rows, error) {
	stmt, err := query.Compose(spec)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	raw, err := s.backend.Query(ctx, stmt)
	if err != nil {
		cancel()
		log.Debugf("query on %s failed: %s", spec.Measurement, err)
		return nil, tsdb.AsUnavailable(err)
	}
	return query.Parse(&timedRaw{raw: raw, cancel: cancel}, spec), nil
}

func (s *MetricsService) Stats() writebuffer.Stats {
	return s.buffer.Stats()
}

func (s *MetricsService) Drain(timeout time.Duration) writebuffer.FlushResult {
	return s.buffer.Drain(timeout)
}

// timedRaw releases the query timeout with the stream and reports transient failures
// while reading as BackendUnavailableError.
type timedRaw struct {
	raw    query.Raw
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

func (r *timedRaw) NextResponse() (*client.Response, error) {
	resp, err := r.raw.NextResponse()
	if err != nil && err != io.EOF {
		return resp, tsdb.AsUnavailable(err)
	}
	return resp, err
}

func (r *timedRaw) Close() error {
	r.once.Do(func() {
		r.err = r.raw.Close()
		r.cancel()
	})
	return r.err
}
