package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/config"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/definition"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/handler"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/stream"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/telemetry"
)

func main() {
	startTime := time.Now()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	logger.Info("starting sla streamer")

	cfg, err := config.LoadSLAStreamerConfig()
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

	archive := definition.NewArchive(s3.NewFromConfig(awsCfg),
		cfg.Definitions.Bucket, cfg.Definitions.Key, cfg.Definitions.Archive)
	loader := definition.NewLoader(os.DirFS(cfg.Definitions.Path), logger, definition.WithArchive(archive))

	sink := stream.NewKinesisSink(kinesis.NewFromConfig(awsCfg))
	producer := stream.NewSLAProducer(cloudwatch.NewFromConfig(awsCfg), sink, cfg.StreamName, cfg.AlarmNamePrefix, logger)

	tp, err := telemetry.NewTracerProvider(ctx, "sla-streamer")
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
		"started sla streamer",
		slog.String("stream", cfg.StreamName),
		slog.String("alarmNamePrefix", cfg.AlarmNamePrefix),
		slog.Float64("initDurationSec", time.Since(startTime).Seconds()),
	)

	h := handler.NewSLAHandler(loader, producer, logger)
	lambda.Start(
		otellambda.InstrumentHandler(
			h.HandleRequest,
			otellambda.WithTracerProvider(tp),
			otellambda.WithFlusher(tp)),
	)
}
