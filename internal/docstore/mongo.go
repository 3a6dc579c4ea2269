package docstore

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fittrack/fitness-tracker-api/pkg/app"
)

// Instance owns the MongoDB client. Users, workouts and exercises live here; the metrics
// core only refers to their ids.
type Instance struct {
	cfg    *Config
	client *mongo.Client
	tracer trace.Tracer
}

// NewInstance connects lazily: a malformed URL is a startup error, an unreachable server
// is only logged so the API can come up before the database does.
func NewInstance(cfg *Config) (*Instance, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetAppName("fitness-tracker-api")
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, app.NewStartupError("mongodb", err)
	}

	db := &Instance{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer("docstore"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		log.Warnf("mongodb database %s is not reachable yet: %s", cfg.DatabaseName, err)
	} else {
		log.Printf("connected to mongodb database %s", cfg.DatabaseName)
	}
	return db, nil
}

func (db *Instance) Ping(ctx context.Context) error {
	ctx, span := db.tracer.Start(ctx, "Ping",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(db.cfg.DatabaseName),
		))
	defer span.End()

	err := db.client.Ping(ctx, readpref.Primary())
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (db *Instance) Database() *mongo.Database {
	return db.client.Database(db.cfg.DatabaseName)
}

func (db *Instance) Close() error {
	log.Printf("closing mongodb client")
	ctx, cancel := context.WithTimeout(context.Background(), db.cfg.ConnectTimeout)
	defer cancel()
	return db.client.Disconnect(ctx)
}
