package ltime

import (
	"sync"
	"time"
)

type Watch interface {
	Now() time.Time
}

type WallWatch struct{}

func (WallWatch) Now() time.Time {
	return time.Now()
}

func NewWallWatch() WallWatch { return WallWatch{} }

var _ Watch = WallWatch{}

// TestingWatch is a manually driven clock. It is safe to read from background goroutines
// while a test advances it.
type TestingWatch struct {
	mu      sync.Mutex
	Current time.Time
}

func NewTestingWatch(current time.Time) *TestingWatch {
	return &TestingWatch{Current: current}
}

func (f *TestingWatch) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Current
}

func (f *TestingWatch) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Current = f.Current.Add(d)
	return f.Current
}

var _ Watch = &TestingWatch{}
