package report

import (
	"context"
	"fmt"

	"github.com/stickynet/sticky-net/internal/intel"
	"github.com/stickynet/sticky-net/pkg/logging"
)

// Publisher enqueues final reports for asynchronous dispatch. Callers treat
// publishing as fire-and-forget: the engine logs a failed Publish and moves
// on, the conversation's terminal state is already committed.
type Publisher struct {
	queue  reportQueue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue reportQueue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("report: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger.Component("report_publisher"),
	}
}

// Publish places the report on the queue.
func (p *Publisher) Publish(ctx context.Context, r FinalReport) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if r.ExtractedEntities == nil {
		r.ExtractedEntities = &intel.Intelligence{}
	}

	if err := p.queue.Enqueue(ctx, r); err != nil {
		return fmt.Errorf("report: failed to enqueue report: %w", err)
	}

	p.logger.Debug("final report enqueued",
		"conversation_id", r.ConversationID,
		"exit_reason", r.ExitReason,
		"entity_count", r.ExtractedEntities.Count(),
	)
	return nil
}
