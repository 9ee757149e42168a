package relay

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
)

// Publisher forwards an opaque message body to the downstream consumer. The
// call is fire-and-forget from the caller's point of view; failures are
// reported but never block business flow.
type Publisher interface {
	Publish(ctx context.Context, body string) error
}

// SQSConfig holds the settings for the SQS publisher.
type SQSConfig struct {
	QueueURL        string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type sqsPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSPublisher builds a Publisher backed by an SQS queue. A non-empty
// Endpoint overrides the default resolution (local stacks).
func NewSQSPublisher(ctx context.Context, cfg SQSConfig) (Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &sqsPublisher{client: client, queueURL: cfg.QueueURL}, nil
}

func (p *sqsPublisher) Publish(ctx context.Context, body string) error {
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(body),
	})
	return err
}

// NopPublisher logs and drops every message. Used when no queue is configured.
type NopPublisher struct {
	Logger *zerolog.Logger
}

func (p *NopPublisher) Publish(_ context.Context, body string) error {
	p.Logger.Debug().Int("bytes", len(body)).Msg("no relay queue configured, dropping message")
	return nil
}
