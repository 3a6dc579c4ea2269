package server

import (
	"encoding/json"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/fittrack/fitness-tracker-api/internal/points"
	"github.com/fittrack/fitness-tracker-api/internal/restapi"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
	sbhttpserver "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/server"
)

// flushEvery is the number of streamed rows written between flushes.
const flushEvery = 100

type MetricsServer struct {
	sbhttpserver.NopServer
	api *restapi.MetricsAPI
}

func NewMetricsServer(api *restapi.MetricsAPI) *MetricsServer {
	return &MetricsServer{
		api: api,
	}
}

func (s *MetricsServer) Shutdown() error {
	return s.api.Shutdown()
}

func (s *MetricsServer) GetHandlers() []sbhttpserver.HandleDescription {
	return []sbhttpserver.HandleDescription{
		{Path: "/api/metrics", Method: "POST", Handler: s.postMetric},
		{Path: "/api/metrics/body_weight", Method: "POST", Handler: s.postBodyWeight},
		{Path: "/api/metrics/workout_volume", Method: "POST", Handler: s.postWorkoutVolume},
		{Path: "/api/metrics/exercise_max", Method: "POST", Handler: s.postExerciseMax},
		{Path: "/api/metrics/workout_count", Method: "POST", Handler: s.postWorkoutCount},
		// older clients post workout counts with a hyphen
		{Path: "/api/metrics/workout-count", Method: "POST", Handler: s.postWorkoutCount},
		{Path: "/api/metrics/query", Method: "GET", Handler: s.queryMetrics},
		{Path: "/api/metrics/stats", Method: "GET", Handler: s.getStats},
	}
}

func (s *MetricsServer) postMetric(request *sbhttpbase.Request) {
	body, herr := decodeBody[points.RawPoint](request)
	if herr != nil {
		returnError(request, herr)
		return
	}
	accepted, herr := s.api.PostMetric(request.Request.Context(), body)
	writeResult(request, http.StatusAccepted, accepted, herr)
}

func (s *MetricsServer) postBodyWeight(request *sbhttpbase.Request) {
	body, herr := decodeBody[restapi.BodyWeightRequest](request)
	if herr != nil {
		returnError(request, herr)
		return
	}
	accepted, herr := s.api.PostBodyWeight(request.Request.Context(), body)
	writeResult(request, http.StatusAccepted, accepted, herr)
}

func (s *MetricsServer) postWorkoutVolume(request *sbhttpbase.Request) {
	body, herr := decodeBody[restapi.WorkoutVolumeRequest](request)
	if herr != nil {
		returnError(request, herr)
		return
	}
	accepted, herr := s.api.PostWorkoutVolume(request.Request.Context(), body)
	writeResult(request, http.StatusAccepted, accepted, herr)
}

func (s *MetricsServer) postExerciseMax(request *sbhttpbase.Request) {
	body, herr := decodeBody[restapi.ExerciseMaxRequest](request)
	if herr != nil {
		returnError(request, herr)
		return
	}
	accepted, herr := s.api.PostExerciseMax(request.Request.Context(), body)
	writeResult(request, http.StatusAccepted, accepted, herr)
}

// postWorkoutCount accepts an empty body; the user can also be given as ?user_id=.
func (s *MetricsServer) postWorkoutCount(request *sbhttpbase.Request) {
	body, herr := decodeOptionalBody[restapi.WorkoutCountRequest](request)
	if herr != nil {
		returnError(request, herr)
		return
	}
	if body.UserID == "" {
		body.UserID = request.Request.URL.Query().Get("user_id")
	}
	accepted, herr := s.api.PostWorkoutCount(request.Request.Context(), body)
	writeResult(request, http.StatusAccepted, accepted, herr)
}

func (s *MetricsServer) getStats(request *sbhttpbase.Request) {
	stats, herr := s.api.GetStats(request.Request.Context())
	writeResult(request, http.StatusOK, stats, herr)
}

// queryMetrics streams {"rows": [...]} as the rows are read. The first row is read before
// the status is written so that a failing query still gets a proper error status. An error
// after that point is reported in a trailing "error" member.
func (s *MetricsServer) queryMetrics(request *sbhttpbase.Request) {
	rows, herr := s.api.QueryMetrics(request.Request.Context(), request.Request.URL.Query())
	if herr != nil {
		returnError(request, herr)
		return
	}
	defer rows.Close()

	more := rows.Next()
	if !more && rows.Err() != nil {
		returnError(request, restapi.ToHttpError(rows.Err()))
		return
	}

	w := request.Writer
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	io.WriteString(w, `{"rows":[`)
	enc := json.NewEncoder(w)
	count := 0
	for ; more; more = rows.Next() {
		if count > 0 {
			io.WriteString(w, ",")
		}
		if err := enc.Encode(rows.Row()); err != nil {
			log.Debugf("stopped streaming query results: %s", err)
			return
		}
		count++
		if flusher != nil && count%flushEvery == 0 {
			flusher.Flush()
		}
	}

	if err := rows.Err(); err != nil {
		log.Warnf("query failed after %d rows: %s", count, err)
		io.WriteString(w, `],"error":`)
		enc.Encode(queryFailure(err))
		io.WriteString(w, "}")
		return
	}
	io.WriteString(w, "]}")
}

func queryFailure(err error) string {
	herr := restapi.ToHttpError(err)
	if herr.Code == 0 {
		return http.StatusText(http.StatusInternalServerError)
	}
	return herr.Message
}
