package writebuffer

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("write buffer is closed")

// QueueFullError is returned by Enqueue when the buffer already owns Capacity points.
type QueueFullError struct {
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("write buffer is full (capacity %d)", e.Capacity)
}
