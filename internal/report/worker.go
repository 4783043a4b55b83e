package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stickynet/sticky-net/pkg/logging"
)

const (
	defaultWorkerCount = 2
	defaultReceiveWait = 2 * time.Second
	defaultBatchSize   = 5
	maxReceiveWait     = 20 * time.Second
	maxBatchSize       = 10
	ackTimeout         = 5 * time.Second
)

// Sink receives dispatched reports. PostgresStore is the production sink.
type Sink interface {
	Insert(ctx context.Context, r FinalReport) error
}

// Worker consumes final reports from the queue and hands them to the sink.
type Worker struct {
	queue  reportQueue
	sink   Sink
	logger *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers     int
	receiveWait time.Duration
	batchSize   int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWait sets the queue long-poll wait duration.
func WithReceiveWait(wait time.Duration) WorkerOption {
	return func(cfg *workerConfig) {
		if wait < 0 {
			return
		}
		if wait > maxReceiveWait {
			wait = maxReceiveWait
		}
		cfg.receiveWait = wait
	}
}

// NewWorker creates the dispatch worker.
func NewWorker(queue reportQueue, sink Sink, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("report: queue cannot be nil")
	}
	if sink == nil {
		panic("report: sink cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:     defaultWorkerCount,
		receiveWait: defaultReceiveWait,
		batchSize:   defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.batchSize > maxBatchSize {
		cfg.batchSize = maxBatchSize
	}

	return &Worker{
		queue:  queue,
		sink:   sink,
		logger: logger.Component("report_worker"),
		cfg:    cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("report worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("report worker stopping", "worker_id", workerID)
			return
		default:
		}

		reports, err := w.queue.Dequeue(ctx, w.cfg.batchSize, w.cfg.receiveWait)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive reports", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, qr := range reports {
			w.handleReport(ctx, qr)
		}
	}
}

func (w *Worker) handleReport(ctx context.Context, qr queuedReport) {
	if err := w.sink.Insert(ctx, qr.Report); err != nil {
		// Leave the report on the queue for redelivery.
		w.logger.Error("failed to store report",
			"error", err,
			"conversation_id", qr.Report.ConversationID,
		)
		return
	}

	w.logger.Info("report dispatched",
		"conversation_id", qr.Report.ConversationID,
		"threat_type", qr.Report.ThreatType,
		"exit_reason", qr.Report.ExitReason,
		"turn_count", qr.Report.TurnCount,
	)
	w.ack(qr.ReceiptHandle)
}

func (w *Worker) ack(receiptHandle string) {
	// Acknowledged on a fresh context so a cancelled worker still clears
	// reports it already stored.
	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()
	if err := w.queue.Ack(ctx, receiptHandle); err != nil {
		w.logger.Warn("failed to acknowledge report message", "error", err)
	}
}
