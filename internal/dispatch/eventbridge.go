package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/config"
)

const (
	eventSource     = "data-governance.sla-parser"
	eventDetailType = "SLA Breached"
)

// EventBridgeAPI defines the EventBridge operations required for sending events.
type EventBridgeAPI interface {
	PutEvents(
		ctx context.Context,
		params *eventbridge.PutEventsInput,
		optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeSender sends payloads to an EventBridge event bus.
type EventBridgeSender struct {
	client EventBridgeAPI
	bus    string
}

// NewEventBridgeSender creates a new EventBridgeSender instance.
func NewEventBridgeSender(client EventBridgeAPI, bus string) *EventBridgeSender {
	return &EventBridgeSender{
		client: client,
		bus:    bus,
	}
}

// Send puts the payload as the detail of a single event. The region is carried
// by the bus itself and is not used.
func (s *EventBridgeSender) Send(ctx context.Context, _ string, payload *alarm.Payload) error {
	ctx, span := tracer.Start(ctx, "dispatch.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.target", string(config.TargetEventBridge)),
		attribute.String("sla.unique_id", payload.UniqueID),
	)

	detail, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot encode payload: %w", err)
	}

	params := &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			Detail:       aws.String(string(detail)),
			DetailType:   aws.String(eventDetailType),
			EventBusName: aws.String(s.bus),
			Source:       aws.String(eventSource),
		}},
	}

	out, err := s.client.PutEvents(ctx, params)
	if err != nil {
		return fmt.Errorf("cannot put event to %q: %w", s.bus, err)
	}

	if out.FailedEntryCount > 0 {
		entry := out.Entries[0]
		return fmt.Errorf("cannot put event to %q: %s - %s",
			s.bus, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
	}

	return nil
}
