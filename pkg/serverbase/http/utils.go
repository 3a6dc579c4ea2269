package sbhttp

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	lhttp "github.com/fittrack/fitness-tracker-api/pkg/http"
)

// ReturnHttpError writes err as the JSON error envelope. Errors without a status code are
// logged and reported as defaultErr, or as a plain 500 when defaultErr is nil.
func ReturnHttpError(w http.ResponseWriter, r *http.Request, err, defaultErr *lhttp.HttpError) {
	if err.Code == 0 {
		log.Errorf("%s %s failed: %s", r.Method, r.URL.Path, err.Err)
		if defaultErr != nil {
			err = defaultErr.Clone()
		}
	}
	if werr := err.WriteResponse(w, r.URL.Path); werr != nil {
		log.Debugf("failed to write error response for %s: %s", r.URL.Path, werr)
	}
}

func ReturnError(w http.ResponseWriter, r *http.Request, code int, message string, err error) {
	ReturnHttpError(w, r, &lhttp.HttpError{Code: code, Message: message, Err: err}, nil)
}

func WriteJson(w http.ResponseWriter, code int, result interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		w.Write([]byte("error serializing response"))
		return err
	}
	return nil
}
