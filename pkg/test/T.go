package ltest

import (
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// T is the subset of *testing.T used by the shared test helpers, so that the same helper
// can run inside a rapid property.
type T interface {
	Helper()
	Fatalf(format string, args ...interface{})
	Cleanup(func())
	assert.TestingT
}

// NewRapidT adapts a rapid.T. The caller must defer RunCleanup since rapid has no cleanup hook.
func NewRapidT(t *rapid.T) *RapidT {
	return &RapidT{
		T: t,
	}
}

type RapidT struct {
	*rapid.T
	cleanups []func()
}

func (r *RapidT) Helper() {
}

func (r *RapidT) Fatalf(format string, args ...interface{}) {
	r.T.Fatalf(format, args...)
}

func (r *RapidT) Errorf(format string, args ...interface{}) {
	r.T.Errorf(format, args...)
}

func (r *RapidT) Cleanup(f func()) {
	r.cleanups = append(r.cleanups, f)
}

// RunCleanup runs the registered cleanups in reverse order.
func (r *RapidT) RunCleanup() {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
	r.cleanups = nil
}

var _ T = &RapidT{}
