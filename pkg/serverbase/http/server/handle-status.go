package sbhttpserver

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	sbhttp "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func writeStatus(request *sbhttpbase.Request, kind string, err error) {
	if err != nil {
		log.Warnf("%s request failed - %s", kind, err)
		sbhttp.WriteJson(request.Writer, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	sbhttp.WriteJson(request.Writer, http.StatusOK, statusResponse{Status: "ok"})
}

func (instance *Instance) registerStatusHandlers(server Server) {
	instance.RegisterHandler(&HandleDescription{
		Path:   "/_status/live",
		Method: "GET",
		Handler: sbhttpbase.HandleFunc(func(request *sbhttpbase.Request) {
			writeStatus(request, "liveness", server.Live(request.Request.Context()))
		}),
	})
	instance.RegisterHandler(&HandleDescription{
		Path:   "/_status/ready",
		Method: "GET",
		Handler: sbhttpbase.HandleFunc(func(request *sbhttpbase.Request) {
			writeStatus(request, "readiness", server.Ready(request.Request.Context()))
		}),
	})
}
