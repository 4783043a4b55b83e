package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stickynet/sticky-net/internal/intel"
	"github.com/stickynet/sticky-net/pkg/logging"
)

func sampleReport() FinalReport {
	return FinalReport{
		ConversationID:  "conv-1",
		IsThreat:        true,
		ThreatType:      "banking_fraud",
		Confidence:      0.93,
		TurnCount:       12,
		DurationSeconds: 840,
		ExtractedEntities: &intel.Intelligence{
			BankAccounts: []string{"123456789012"},
			PhoneNumbers: []string{"9876543210"},
		},
		ExitReason: "intelligence complete",
		ReportedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestPublishRoundTripsThroughMemoryQueue(t *testing.T) {
	queue := NewMemoryQueue(4)
	pub := NewPublisher(queue, logging.New("error"))

	want := sampleReport()
	require.NoError(t, pub.Publish(context.Background(), want))

	reports, err := queue.Dequeue(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.NotEmpty(t, reports[0].MessageID)

	got := reports[0].Report
	assert.Equal(t, want.ConversationID, got.ConversationID)
	assert.Equal(t, want.ThreatType, got.ThreatType)
	assert.Equal(t, want.ExtractedEntities.BankAccounts, got.ExtractedEntities.BankAccounts)
	assert.Equal(t, want.ExitReason, got.ExitReason)
}

func TestPublishNilEntities(t *testing.T) {
	queue := NewMemoryQueue(1)
	pub := NewPublisher(queue, logging.New("error"))

	r := sampleReport()
	r.ExtractedEntities = nil
	require.NoError(t, pub.Publish(context.Background(), r))

	reports, err := queue.Dequeue(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Report.ExtractedEntities)
	assert.Zero(t, reports[0].Report.ExtractedEntities.Count())
}

func TestPublishQueueFailure(t *testing.T) {
	pub := NewPublisher(failingQueue{}, logging.New("error"))

	err := pub.Publish(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue report")
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, FinalReport) error { return errors.New("queue down") }
func (failingQueue) Dequeue(context.Context, int, time.Duration) ([]queuedReport, error) {
	return nil, errors.New("queue down")
}
func (failingQueue) Ack(context.Context, string) error { return nil }

type captureSink struct {
	mu      sync.Mutex
	reports []FinalReport
	err     error
}

func (s *captureSink) Insert(_ context.Context, r FinalReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reports = append(s.reports, r)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func TestWorkerDispatchesToSink(t *testing.T) {
	queue := NewMemoryQueue(4)
	sink := &captureSink{}
	worker := NewWorker(queue, sink, logging.New("error"), WithWorkerCount(1), WithReceiveWait(time.Second))

	pub := NewPublisher(queue, logging.New("error"))
	require.NoError(t, pub.Publish(context.Background(), sampleReport()))

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	require.Eventually(t, func() bool { return sink.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	worker.Wait()

	assert.Equal(t, "conv-1", sink.reports[0].ConversationID)
	assert.Equal(t, "intelligence complete", sink.reports[0].ExitReason)
}

func TestMemoryQueueDequeueTimesOut(t *testing.T) {
	queue := NewMemoryQueue(1)

	start := time.Now()
	reports, err := queue.Dequeue(context.Background(), 1, time.Second)
	require.NoError(t, err)
	assert.Nil(t, reports)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestMemoryQueueDequeueHonorsContext(t *testing.T) {
	queue := NewMemoryQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := queue.Dequeue(ctx, 1, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
