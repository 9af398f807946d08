package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws/arn"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dispatch"
)

// NotificationHandler forwards alarm notifications of declared SLAs to the central target.
type NotificationHandler struct {
	loader  DefinitionLoader
	sender  dispatch.Sender
	options []alarm.Option
	logger  *slog.Logger
}

func NewNotificationHandler(
	loader DefinitionLoader,
	sender dispatch.Sender,
	logger *slog.Logger,
	opts ...alarm.Option,
) *NotificationHandler {
	return &NotificationHandler{
		loader:  loader,
		sender:  sender,
		options: opts,
		logger:  logger,
	}
}

func (h *NotificationHandler) HandleRequest(ctx context.Context, event events.SNSEvent) error {
	if len(event.Records) == 0 {
		err := errors.New("event has no records")
		h.logger.ErrorContext(ctx, "invalid event", slog.String("error", err.Error()))
		return err
	}

	origin, err := invokedOrigin(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "cannot resolve invocation origin", slog.String("error", err.Error()))
		return err
	}

	def, err := h.loader.Load(ctx, origin.AccountID)
	if err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot load definitions",
			slog.String("account", origin.AccountID),
			slog.String("error", err.Error()),
		)
		return err
	}

	parser := alarm.NewParser(def.SLAs(), h.logger, h.options...)

	for _, record := range event.Records {
		if err := h.handleRecord(ctx, parser, record); err != nil {
			return err
		}
	}

	return nil
}

func (h *NotificationHandler) handleRecord(ctx context.Context, parser *alarm.Parser, record events.SNSEventRecord) error {
	region, err := subscriptionRegion(record.EventSubscriptionArn)
	if err != nil {
		h.logger.ErrorContext(ctx, "invalid event", slog.String("error", err.Error()))
		return err
	}

	match, err := parser.Parse(ctx, record.SNS.Subject, record.SNS.Message)
	if err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot correlate alarm",
			slog.String("subject", record.SNS.Subject),
			slog.String("error", err.Error()),
		)
		return err
	}

	if !match.SLA.SNSEnabled {
		h.logger.InfoContext(
			ctx,
			"sla notifications disabled; payload not sent",
			slog.String("uniqueId", match.Payload.UniqueID),
			slog.String("details", match.Payload.Details),
			slog.String("shortDescription", match.Payload.ShortDescription),
		)
		return nil
	}

	if err := h.sender.Send(ctx, region, &match.Payload); err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot send notification",
			slog.String("uniqueId", match.Payload.UniqueID),
			slog.String("error", err.Error()),
		)
		return err
	}

	h.logger.InfoContext(ctx, "notification sent",
		slog.String("uniqueId", match.Payload.UniqueID),
		slog.String("state", match.State),
		slog.String("region", region))

	return nil
}

func subscriptionRegion(subscriptionARN string) (string, error) {
	a, err := arn.Parse(subscriptionARN)
	if err != nil {
		return "", fmt.Errorf("cannot parse subscription arn: %w", err)
	}
	return a.Region, nil
}
