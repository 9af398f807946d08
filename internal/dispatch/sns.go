package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/config"
)

// SNSAPI defines the SNS operations required for publishing payloads.
type SNSAPI interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender publishes payloads to the central topic in the region the alarm fired in.
type SNSSender struct {
	client  SNSAPI
	account string
	topic   string
}

func NewSNSSender(client SNSAPI, account, topic string) *SNSSender {
	return &SNSSender{
		client:  client,
		account: account,
		topic:   topic,
	}
}

// TopicARN returns the central topic ARN in region.
func (s *SNSSender) TopicARN(region string) string {
	return arn.ARN{
		Partition: "aws",
		Service:   "sns",
		Region:    region,
		AccountID: s.account,
		Resource:  s.topic,
	}.String()
}

// Send publishes the JSON encoded payload.
func (s *SNSSender) Send(ctx context.Context, region string, payload *alarm.Payload) error {
	ctx, span := tracer.Start(ctx, "dispatch.send")
	defer span.End()

	topicARN := s.TopicARN(region)
	span.SetAttributes(
		attribute.String("dispatch.target", string(config.TargetSNS)),
		attribute.String("dispatch.topic", topicARN),
		attribute.String("sla.unique_id", payload.UniqueID),
	)

	msg, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot encode payload: %w", err)
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(string(msg)),
	})
	if err != nil {
		return fmt.Errorf("cannot publish to %q: %w", topicARN, err)
	}

	return nil
}
