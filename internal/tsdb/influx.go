package tsdb

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	client "github.com/influxdata/influxdb1-client/v2"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/query"
	"github.com/fittrack/fitness-tracker-api/pkg/app"
	ltime "github.com/fittrack/fitness-tracker-api/pkg/time"
)

const userAgent = "fitness-tracker-api"

type Backend interface {
	Write(ctx context.Context, batch []points.MetricPoint) error
	Query(ctx context.Context, stmt query.Statement) (query.Raw, error)
	Ping(ctx context.Context) error
	Close() error
}

// Influx talks to InfluxDB through the v1 HTTP API. The client library has no context
// support, so every call runs on its own goroutine and is abandoned when the context ends.
type Influx struct {
	cfg    *Config
	writer client.Client
	reader client.Client
	tracer trace.Tracer
	watch  ltime.Watch

	// unavailableUntil is a unix nano deadline before which queries fail without I/O
	unavailableUntil atomic.Int64
}

var _ Backend = &Influx{}

func NewInflux(cfg *Config) (*Influx, error) {
	return newInflux(cfg, ltime.NewWallWatch())
}

func newInflux(cfg *Config, watch ltime.Watch) (*Influx, error) {
	username, password := cfg.basicAuth()
	writer, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:      cfg.URL,
		Username:  username,
		Password:  password,
		UserAgent: userAgent,
		Timeout:   cfg.WriteTimeout,
	})
	if err != nil {
		return nil, app.NewStartupError("influxdb", err)
	}
	reader, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:      cfg.URL,
		Username:  username,
		Password:  password,
		UserAgent: userAgent,
		Timeout:   cfg.QueryTimeout,
	})
	if err != nil {
		return nil, app.NewStartupError("influxdb", err)
	}

	influx := &Influx{
		cfg:    cfg,
		writer: writer,
		reader: reader,
		tracer: otel.Tracer("tsdb"),
		watch:  watch,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()
	if err := influx.Ping(ctx); err != nil {
		log.Warnf("influxdb at %s (org %s, bucket %s) is not reachable yet: %s", cfg.URL, cfg.Org, cfg.Bucket, err)
	} else {
		log.Printf("connected to influxdb at %s (org %s, bucket %s)", cfg.URL, cfg.Org, cfg.Bucket)
	}
	return influx, nil
}

func (i *Influx) startSpan(ctx context.Context, spanName string, statement string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemKey.String("influxdb"),
			semconv.DBNameKey.String(i.cfg.Bucket),
			semconv.DBStatementKey.String(statement),
			semconv.PeerServiceKey.String(fmt.Sprintf("%s[influxdb(%s)]", i.cfg.Org, i.cfg.URL)),
		),
	)
}

// call runs fn unless ctx ends first. fn keeps running in the background until the client
// timeout releases it.
func call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Influx) result(op string, err error, span trace.Span) error {
	if err == nil {
		i.unavailableUntil.Store(0)
		return nil
	}
	kind := Classify(err)
	if kind == KindUnavailable {
		i.unavailableUntil.Store(i.watch.Now().Add(i.cfg.UnavailableCooldown).UnixNano())
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	return &Error{Op: op, Kind: kind, Err: err}
}

func (i *Influx) coolingDown() bool {
	until := i.unavailableUntil.Load()
	return until != 0 && i.watch.Now().UnixNano() < until
}

func (i *Influx) Write(ctx context.Context, batch []points.MetricPoint) error {
	ctx, span := i.startSpan(ctx, "Write", fmt.Sprintf("write %d points", len(batch)))
	defer span.End()

	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Precision:       "ns",
		Database:        i.cfg.Bucket,
		RetentionPolicy: i.cfg.RetentionPolicy,
	})
	if err != nil {
		return i.result("write", err, span)
	}
	for _, p := range batch {
		fields := make(map[string]interface{}, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}
		pt, err := client.NewPoint(p.Measurement, p.Tags, fields, p.Timestamp)
		if err != nil {
			log.Warnf("skipping point %s at %s: %s", p.Measurement, p.Timestamp, err)
			continue
		}
		bp.AddPoint(pt)
	}
	if len(bp.Points()) == 0 {
		return nil
	}

	log.Debugf("writing %d points to %s", len(bp.Points()), i.cfg.Bucket)
	err = call(ctx, func() error {
		return i.writer.Write(bp)
	})
	return i.result("write", err, span)
}

// Query starts a chunked query. The returned stream must be closed; it is also closed when
// ctx ends so that a stalled read is released.
func (i *Influx) Query(ctx context.Context, stmt query.Statement) (query.Raw, error) {
	if i.coolingDown() {
		return nil, &BackendUnavailableError{Kind: KindUnavailable, Err: ErrCoolingDown}
	}

	spanCtx, span := i.startSpan(ctx, "Query", stmt.Command)

	q := client.NewQueryWithParameters(stmt.Command, i.cfg.Bucket, "ns", stmt.Params)
	q.RetentionPolicy = i.cfg.RetentionPolicy
	q.Chunked = true
	q.ChunkSize = i.cfg.QueryChunkSize

	type started struct {
		resp *client.ChunkedResponse
		err  error
	}
	done := make(chan started, 1)
	go func() {
		resp, err := i.reader.QueryAsChunk(q)
		done <- started{resp: resp, err: err}
	}()

	select {
	case s := <-done:
		if s.err != nil {
			err := i.result("query", s.err, span)
			span.End()
			return nil, err
		}
		i.unavailableUntil.Store(0)
		return newStream(spanCtx, s.resp, span), nil
	case <-ctx.Done():
		go func() {
			if s := <-done; s.resp != nil {
				s.resp.Close()
			}
		}()
		err := i.result("query", ctx.Err(), span)
		span.End()
		return nil, err
	}
}

func (i *Influx) Ping(ctx context.Context) error {
	ctx, span := i.startSpan(ctx, "Ping", "ping")
	defer span.End()

	err := call(ctx, func() error {
		_, _, err := i.reader.Ping(0)
		return err
	})
	return i.result("ping", err, span)
}

func (i *Influx) Close() error {
	log.Printf("closing influxdb clients")
	if err := i.writer.Close(); err != nil {
		return err
	}
	return i.reader.Close()
}

type stream struct {
	ctx  context.Context
	resp *client.ChunkedResponse
	span trace.Span
	stop func() bool
	once sync.Once
	err  error
}

func newStream(ctx context.Context, resp *client.ChunkedResponse, span trace.Span) *stream {
	s := &stream{ctx: ctx, resp: resp, span: span}
	s.stop = context.AfterFunc(ctx, func() {
		resp.Close()
	})
	return s
}

func (s *stream) NextResponse() (*client.Response, error) {
	resp, err := s.resp.NextResponse()
	if err != nil && err != io.EOF {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		s.span.RecordError(err)
		return nil, &Error{Op: "query", Kind: Classify(err), Err: err}
	}
	return resp, err
}

func (s *stream) Close() error {
	s.once.Do(func() {
		s.stop()
		s.err = s.resp.Close()
		s.span.End()
	})
	return s.err
}
