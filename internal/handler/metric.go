package handler

import (
	"context"
	"log/slog"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/stream"
)

// MetricEvent is the scheduled event of the metric streamer.
type MetricEvent struct {
	Frequency dataquality.Frequency `json:"frequency"`
}

type MetricProducer interface {
	Produce(ctx context.Context, s *dataquality.MetricStream, frequency dataquality.Frequency, origin stream.Origin) (int, error)
}

// MetricHandler streams the latest datapoints of the invoked account's metrics.
type MetricHandler struct {
	loader   DefinitionLoader
	producer MetricProducer
	logger   *slog.Logger
}

func NewMetricHandler(loader DefinitionLoader, producer MetricProducer, logger *slog.Logger) *MetricHandler {
	return &MetricHandler{
		loader:   loader,
		producer: producer,
		logger:   logger,
	}
}

func (h *MetricHandler) HandleRequest(ctx context.Context, event MetricEvent) error {
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

	count, err := h.producer.Produce(ctx, dataquality.NewMetricStream(def.MetricSets...), event.Frequency, origin)
	if err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot stream metrics",
			slog.String("frequency", string(event.Frequency)),
			slog.String("error", err.Error()),
		)
		return err
	}

	h.logger.InfoContext(ctx, "metrics streamed",
		slog.String("account", origin.AccountID),
		slog.String("frequency", string(event.Frequency)),
		slog.Int("count", count))

	return nil
}
