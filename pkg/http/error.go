package lhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type HttpError struct {
	Code    int
	Message string
	Details []ErrorDetail
	Err     error
}

// ErrorDetail describes one rejected input value.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error      bool          `json:"error"`
	StatusCode int           `json:"status_code"`
	Message    string        `json:"message"`
	Details    []ErrorDetail `json:"details,omitempty"`
	Path       string        `json:"path"`
}

func FromError(err error) *HttpError {
	if err == nil {
		return nil
	}

	var herr *HttpError
	if errors.As(err, &herr) {
		return herr
	}

	return &HttpError{Err: err}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("got code %d and message \"%s\"", e.Code, e.Message)
}

func (e *HttpError) Unwrap() error {
	return e.Err
}

func (e *HttpError) Clone() *HttpError {
	return &HttpError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Err:     e.Err,
	}
}

// StatusCode is Code, or 500 for errors that carry no code of their own.
func (e *HttpError) StatusCode() int {
	if e.Code == 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// WriteResponse writes the JSON error envelope. The message of a wrapped internal error is
// never exposed.
func (e *HttpError) WriteResponse(w http.ResponseWriter, path string) error {
	response := ErrorResponse{
		Error:      true,
		StatusCode: e.StatusCode(),
		Message:    e.Message,
		Details:    e.Details,
		Path:       path,
	}
	if e.Code == 0 || response.Message == "" {
		response.Message = http.StatusText(response.StatusCode)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.StatusCode)
	return json.NewEncoder(w).Encode(response)
}

func (e *HttpError) WithPayload(payload string) *HttpError {
	e.Message = payload
	return e
}

func (e *HttpError) WithDetails(details ...ErrorDetail) *HttpError {
	e.Details = append(e.Details, details...)
	return e
}

func NewNotFound(message string) *HttpError {
	return &HttpError{Code: http.StatusNotFound, Message: message}
}

func NewBadRequest(message string) *HttpError {
	return &HttpError{Code: http.StatusBadRequest, Message: message}
}

func NewTooManyRequests(message string) *HttpError {
	return &HttpError{Code: http.StatusTooManyRequests, Message: message}
}

func NewServiceUnavailable(message string) *HttpError {
	return &HttpError{Code: http.StatusServiceUnavailable, Message: message}
}

func NewInternalError(message string) *HttpError {
	return &HttpError{Code: http.StatusInternalServerError, Message: message}
}
