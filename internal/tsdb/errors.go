package tsdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "unavailable"
	KindRejected    ErrorKind = "rejected"
	KindCanceled    ErrorKind = "canceled"
	KindUnknown     ErrorKind = "unknown"
)

var ErrCoolingDown = fmt.Errorf("backend marked unavailable after a recent connection failure")

// Error is returned by every Backend call that fails.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("influxdb %s failed (%s): %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BackendUnavailableError means the backend could not be reached in time. Callers should
// retry later.
type BackendUnavailableError struct {
	Kind ErrorKind
	Err  error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("metrics backend unavailable: %s", e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// AsUnavailable converts transient failures to a BackendUnavailableError and returns any
// other error unchanged.
func AsUnavailable(err error) error {
	var unavailable *BackendUnavailableError
	if err == nil || errors.As(err, &unavailable) {
		return err
	}
	if IsTransient(err) {
		return &BackendUnavailableError{Kind: Classify(err), Err: err}
	}
	return err
}

var unavailableMessages = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"unavailable",
	"downstream server",
	"broken pipe",
}

var rejectedMessages = []string{
	"partial write",
	"unable to parse",
	"field type conflict",
	"authorization failed",
	"database not found",
	"invalid",
	"error parsing query",
}

// Classify maps an error from the InfluxDB client onto an ErrorKind. The client reports
// HTTP failures as plain strings, so the message is inspected after the typed checks.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.Kind
	}
	var unavailable *BackendUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Kind
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindUnavailable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindUnavailable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnavailable
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return KindTimeout
	}
	for _, m := range unavailableMessages {
		if strings.Contains(msg, m) {
			return KindUnavailable
		}
	}
	for _, m := range rejectedMessages {
		if strings.Contains(msg, m) {
			return KindRejected
		}
	}
	return KindUnknown
}

// IsTransient reports whether retrying err later may succeed.
func IsTransient(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindUnavailable:
		return true
	}
	return false
}
