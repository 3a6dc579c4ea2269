package tsdb

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/influxdata/influxdb1-client/models"

	ltest "github.com/fittrack/fitness-tracker-api/pkg/test"
)

// TestingServer fakes the InfluxDB v1 endpoints used by Influx.
type TestingServer struct {
	*httptest.Server

	mu             sync.Mutex
	Points         []models.Point
	WriteParams    []url.Values
	WriteStatus    int
	WriteBody      string
	QueryParams    []url.Values
	QueryResponses []client.Response
	QueryDelay     time.Duration
	Username       string
	Password       string
}

func NewTestingServer(t ltest.T) *TestingServer {
	t.Helper()
	s := &TestingServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Influxdb-Version", "1.8.10")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/write", s.handleWrite)
	mux.HandleFunc("/query", s.handleQuery)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

func (s *TestingServer) Config() *Config {
	return &Config{
		URL:                 s.URL,
		Token:               "test-token",
		Org:                 "test-org",
		Bucket:              "test-bucket",
		WriteTimeout:        time.Second,
		QueryTimeout:        time.Second,
		PingTimeout:         time.Second,
		QueryChunkSize:      100,
		UnavailableCooldown: time.Minute,
	}
}

func (s *TestingServer) handleWrite(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Username, s.Password, _ = r.BasicAuth()
	s.WriteParams = append(s.WriteParams, r.URL.Query())

	w.Header().Set("X-Influxdb-Version", "1.8.10")
	if s.WriteStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.WriteStatus)
		io.WriteString(w, s.WriteBody)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	parsed, err := models.ParsePointsWithPrecision(body, time.Now().UTC(), r.URL.Query().Get("precision"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"unable to parse points"}`)
		return
	}
	s.Points = append(s.Points, parsed...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *TestingServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.QueryParams = append(s.QueryParams, r.URL.Query())
	responses := s.QueryResponses
	delay := s.QueryDelay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("X-Influxdb-Version", "1.8.10")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	for _, resp := range responses {
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *TestingServer) WrittenPoints() []models.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]models.Point, len(s.Points))
	copy(ret, s.Points)
	return ret
}

func (s *TestingServer) LastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.QueryParams) == 0 {
		return nil
	}
	return s.QueryParams[len(s.QueryParams)-1]
}

func (s *TestingServer) SetQueryResponses(responses ...client.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryResponses = responses
}
