package handler

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

type PartitionRegistrar interface {
	Register(ctx context.Context, key string, catalogs []string) (int, error)
}

// PartitionHandler registers the catalog partition of every delivered object.
type PartitionHandler struct {
	registrar PartitionRegistrar
	catalogs  []string
	logger    *slog.Logger
}

func NewPartitionHandler(registrar PartitionRegistrar, catalogs []string, logger *slog.Logger) *PartitionHandler {
	return &PartitionHandler{
		registrar: registrar,
		catalogs:  catalogs,
		logger:    logger,
	}
}

func (h *PartitionHandler) HandleRequest(ctx context.Context, event events.S3Event) error {
	for _, record := range event.Records {
		key := record.S3.Object.Key

		created, err := h.registrar.Register(ctx, key, h.catalogs)
		if err != nil {
			h.logger.ErrorContext(
				ctx,
				"cannot register partition",
				slog.String("bucket", record.S3.Bucket.Name),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return err
		}

		h.logger.InfoContext(ctx, "partition registered",
			slog.String("key", key),
			slog.Int("created", created))
	}

	return nil
}
