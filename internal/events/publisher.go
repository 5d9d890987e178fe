package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/wolfman30/carepulse/pkg/logging"
)

// Publisher delivers canonical events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, subject string, evt CanonicalEvent, opts ...EnvelopeOption) error
}

// sqsAPI is the subset of the SQS client used here.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends each envelope as one SQS message.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

// NewSQSPublisher creates a publisher around the provided SQS client.
func NewSQSPublisher(client sqsAPI, queueURL string) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, subject string, evt CanonicalEvent, opts ...EnvelopeOption) error {
	env, err := NewEnvelope(ctx, subject, evt, opts...)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type":    {DataType: aws.String("String"), StringValue: aws.String(env.Type)},
			"event_version": {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(env.Version))},
			"subject":       {DataType: aws.String("String"), StringValue: aws.String(env.Subject)},
		},
	})
	if err != nil {
		return fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	return nil
}

// LogPublisher writes envelopes to the log. Used when no queue is configured.
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, subject string, evt CanonicalEvent, opts ...EnvelopeOption) error {
	env, err := NewEnvelope(ctx, subject, evt, opts...)
	if err != nil {
		return err
	}
	p.logger.Info("event published",
		"event_type", env.Type,
		"subject", env.Subject,
		"event_id", env.ID,
		"actor", env.Actor,
		"correlation_id", env.CorrelationID,
	)
	return nil
}

var (
	_ Publisher = (*SQSPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
