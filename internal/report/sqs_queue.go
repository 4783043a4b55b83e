package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/stickynet/sticky-net/pkg/logging"
)

// sqsAPI is the slice of the SQS client the queue uses. *sqs.Client
// satisfies it; tests substitute a fake.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue is the production reportQueue, carrying final reports as JSON
// bodies on AWS/LocalStack SQS. Serialization lives here: the publisher and
// worker only ever see typed reports.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
	logger   *logging.Logger
}

// NewSQSQueue creates a queue wrapper around the provided SQS client.
func NewSQSQueue(client sqsAPI, queueURL string, logger *logging.Logger) *SQSQueue {
	if client == nil {
		panic("report: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("report: SQS queueURL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSQueue{
		client:   client,
		queueURL: queueURL,
		logger:   logger.Component("report_queue"),
	}
}

// Enqueue serializes the report and sends it as one SQS message.
func (q *SQSQueue) Enqueue(ctx context.Context, r FinalReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: failed to encode report: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("report: failed to send SQS message: %w", err)
	}
	return nil
}

// Dequeue long-polls SQS for up to wait and decodes each body. A body that
// does not decode can never be dispatched, so it is deleted on the spot
// rather than left to cycle through redelivery.
func (q *SQSQueue) Dequeue(ctx context.Context, max int, wait time.Duration) ([]queuedReport, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("report: failed to receive SQS messages: %w", err)
	}

	reports := make([]queuedReport, 0, len(output.Messages))
	for _, msg := range output.Messages {
		var r FinalReport
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &r); err != nil {
			q.logger.Error("dropping undecodable report message",
				"error", err,
				"msg_id", aws.ToString(msg.MessageId),
			)
			if derr := q.Ack(ctx, aws.ToString(msg.ReceiptHandle)); derr != nil {
				q.logger.Warn("failed to delete undecodable report message", "error", derr)
			}
			continue
		}
		reports = append(reports, queuedReport{
			MessageID:     aws.ToString(msg.MessageId),
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
			Report:        r,
		})
	}
	return reports, nil
}

// Ack deletes a dispatched report's message from the queue.
func (q *SQSQueue) Ack(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return nil
	}
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("report: failed to delete SQS message: %w", err)
	}
	return nil
}
