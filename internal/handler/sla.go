package handler

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/stream"
)

type SLAProducer interface {
	Produce(ctx context.Context, metrics []dataquality.Metric, origin stream.Origin) (int, error)
}

// SLAHandler streams the state of the invoked account's SLA alarms on every tick.
type SLAHandler struct {
	loader   DefinitionLoader
	producer SLAProducer
	logger   *slog.Logger
}

func NewSLAHandler(loader DefinitionLoader, producer SLAProducer, logger *slog.Logger) *SLAHandler {
	return &SLAHandler{
		loader:   loader,
		producer: producer,
		logger:   logger,
	}
}

func (h *SLAHandler) HandleRequest(ctx context.Context, _ events.CloudWatchEvent) error {
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

	metrics := dataquality.NewMetricStream(def.MetricSets...).Metrics

	count, err := h.producer.Produce(ctx, metrics, origin)
	if err != nil {
		h.logger.ErrorContext(ctx, "cannot stream slas", slog.String("error", err.Error()))
		return err
	}

	h.logger.InfoContext(ctx, "slas streamed",
		slog.String("account", origin.AccountID),
		slog.Int("count", count))

	return nil
}
