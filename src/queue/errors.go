package queue

import "errors"

var (
	// ErrQueueClosed is returned for jobs enqueued after Close.
	ErrQueueClosed = errors.New("request queue closed")

	// ErrJobPanicked is returned to the waiter of a job that panicked.
	ErrJobPanicked = errors.New("queued job panicked")
)
