package report

import (
	"context"
	"time"
)

// queuedReport is a final report in flight between the publisher and the
// dispatch worker, with the transport metadata needed to acknowledge it.
type queuedReport struct {
	MessageID     string
	ReceiptHandle string
	Report        FinalReport
}

// reportQueue moves final reports from the engine to the dispatch worker:
// SQS in production, an in-memory channel for dev and tests. Dequeued reports
// stay on the queue until acknowledged, so a crashed worker redelivers.
type reportQueue interface {
	Enqueue(ctx context.Context, r FinalReport) error
	Dequeue(ctx context.Context, max int, wait time.Duration) ([]queuedReport, error)
	Ack(ctx context.Context, receiptHandle string) error
}
