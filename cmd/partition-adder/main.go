package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/config"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/handler"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/partition"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/telemetry"
)

func main() {
	startTime := time.Now()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	logger.Info("starting partition adder")

	cfg, err := config.LoadPartitionConfig()
	if err != nil {
		logger.Error("cannot load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("cannot load aws config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	registrar := partition.NewRegistrar(glue.NewFromConfig(awsCfg), cfg.Database, logger)

	tp, err := telemetry.NewTracerProvider(ctx, "partition-adder")
	if err != nil {
		logger.Error("cannot initialize tracer provider", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("cannot shutdown tracer provider", slog.String("error", err.Error()))
		}
	}()

	logger.Info(
		"started partition adder",
		slog.String("database", cfg.Database),
		slog.String("catalogs", strings.Join(cfg.Catalogs, ",")),
		slog.Float64("initDurationSec", time.Since(startTime).Seconds()),
	)

	h := handler.NewPartitionHandler(registrar, cfg.Catalogs, logger)
	lambda.Start(
		otellambda.InstrumentHandler(
			h.HandleRequest,
			otellambda.WithTracerProvider(tp),
			otellambda.WithFlusher(tp)),
	)
}
