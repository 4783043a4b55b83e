package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is a reportQueue backed by a buffered channel. Reports are
// passed as values, so nothing is serialized and delivery is effectively
// at-most-once; that is fine for the dev and test deployments it serves.
type MemoryQueue struct {
	ch chan queuedReport
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer capacity.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch: make(chan queuedReport, buffer),
	}
}

// Enqueue places a report on the channel or blocks until ctx is done.
func (q *MemoryQueue) Enqueue(ctx context.Context, r FinalReport) error {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case q.ch <- queuedReport{MessageID: uuid.NewString(), Report: r}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until at least one report is available, ctx is done, or
// wait elapses, then drains up to max without further blocking.
func (q *MemoryQueue) Dequeue(ctx context.Context, max int, wait time.Duration) ([]queuedReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if max <= 0 {
		max = 1
	}

	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	var first queuedReport
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, nil
	case first = <-q.ch:
	}

	reports := make([]queuedReport, 0, max)
	reports = append(reports, first)
	for len(reports) < max {
		select {
		case r := <-q.ch:
			reports = append(reports, r)
		default:
			return reports, nil
		}
	}
	return reports, nil
}

// Ack is a no-op: channel delivery already removed the report.
func (q *MemoryQueue) Ack(_ context.Context, _ string) error {
	return nil
}
