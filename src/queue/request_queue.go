package queue

import (
	"sync"
	"time"

	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/utils"
)

// -----------------------------------------------------------------------------
// RequestQueue serializes every outbound data-provider call process-wide.
// Jobs run strictly FIFO, one at a time, with a fixed delay between
// completions so bursts never hit upstream rate limits. A job's error goes
// to that job's waiter only, never into the worker loop.
// -----------------------------------------------------------------------------

type queuedJob struct {
	run    func() (*models.MMarketSeries, error)
	result chan jobResult
}

type jobResult struct {
	series *models.MMarketSeries
	err    error
}

// -----------------------------------------------------------------------------

type RequestQueue struct {
	Logger *logger.Logger

	delay time.Duration

	mu      sync.Mutex
	jobs    []*queuedJob
	running bool
	closed  bool
}

// -----------------------------------------------------------------------------

func NewRequestQueue(l *logger.Logger) *RequestQueue {
	return &RequestQueue{
		Logger: l,
		delay:  utils.QueueJobDelay,
	}
}

// -----------------------------------------------------------------------------

// SetDelay overrides the inter-job spacing. Tests use a zero delay.
func (q *RequestQueue) SetDelay(d time.Duration) {
	q.mu.Lock()
	q.delay = d
	q.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Enqueue appends job and returns a channel that receives its settlement.
// The channel is buffered so an abandoned waiter never wedges the worker.
func (q *RequestQueue) Enqueue(job func() (*models.MMarketSeries, error)) <-chan struct {
	Series *models.MMarketSeries
	Err    error
} {
	out := make(chan struct {
		Series *models.MMarketSeries
		Err    error
	}, 1)

	qj := &queuedJob{run: job, result: make(chan jobResult, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		out <- struct {
			Series *models.MMarketSeries
			Err    error
		}{nil, ErrQueueClosed}
		return out
	}
	q.jobs = append(q.jobs, qj)
	if !q.running {
		q.running = true
		go q.processLoop()
	}
	q.mu.Unlock()

	go func() {
		res := <-qj.result
		out <- struct {
			Series *models.MMarketSeries
			Err    error
		}{res.series, res.err}
	}()

	return out
}

// -----------------------------------------------------------------------------

// EnqueueWait is Enqueue plus a blocking wait for the result.
func (q *RequestQueue) EnqueueWait(job func() (*models.MMarketSeries, error)) (*models.MMarketSeries, error) {
	res := <-q.Enqueue(job)
	return res.Series, res.Err
}

// -----------------------------------------------------------------------------

// processLoop is the single worker. It exits when the queue drains and is
// restarted by the next Enqueue.
func (q *RequestQueue) processLoop() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		series, err := q.runJob(job)
		job.result <- jobResult{series: series, err: err}

		// Space out consecutive jobs. Checked after the job so work that
		// queued up during a long call still gets the gap.
		q.mu.Lock()
		remaining := len(q.jobs)
		delay := q.delay
		q.mu.Unlock()
		if remaining > 0 && delay > 0 {
			time.Sleep(delay)
		}
	}
}

// -----------------------------------------------------------------------------

// runJob executes one job, converting a panic into that job's error.
func (q *RequestQueue) runJob(job *queuedJob) (series *models.MMarketSeries, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.Logger.Error("Queued job panicked: %v", r)
			err = ErrJobPanicked
		}
	}()
	return job.run()
}

// -----------------------------------------------------------------------------

// Close rejects all future jobs. Jobs already queued still run.
func (q *RequestQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Len returns the number of jobs waiting (excludes the one executing).
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
