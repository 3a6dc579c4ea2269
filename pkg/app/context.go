package app

import (
	"context"
	"time"
)

const BACKGROUND_TIMEOUT_DURATION = time.Minute

func BackgroundTimeoutContext() (context.Context, context.CancelFunc) {
	return BackgroundTimeoutContextDuration(BACKGROUND_TIMEOUT_DURATION)
}

// BackgroundTimeoutContextDuration is detached from the instance context, so it stays usable
// while closers run after cancellation.
func BackgroundTimeoutContextDuration(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
