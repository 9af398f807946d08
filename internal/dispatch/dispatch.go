// Package dispatch forwards SLA notification payloads to the central notification target.
package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.opentelemetry.io/otel"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/config"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dispatch")

// Sender sends notification payloads to a notification target.
type Sender interface {
	// Send dispatches a payload raised by an alarm in region.
	Send(ctx context.Context, region string, payload *alarm.Payload) error
}

// NewSender creates a Sender implementation based on the configured notification target.
// Supported targets: sns, eventbridge.
// Returns an error if the target is unknown.
func NewSender(awsCfg aws.Config, cfg *config.SLAParserConfig) (Sender, error) {
	switch cfg.Target {
	case config.TargetSNS:
		client := sns.NewFromConfig(awsCfg)
		return NewSNSSender(client, cfg.CentralAccount, cfg.CentralTopic), nil

	case config.TargetEventBridge:
		client := eventbridge.NewFromConfig(awsCfg)
		return NewEventBridgeSender(client, cfg.EventBusName), nil

	default:
		return nil, fmt.Errorf("unknown notification target: %s", cfg.Target)
	}
}
