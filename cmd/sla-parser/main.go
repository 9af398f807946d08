package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/alarm"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/config"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/definition"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dispatch"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/handler"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/telemetry"
)

func main() {
	startTime := time.Now()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	logger.Info("starting sla parser")

	cfg, err := config.LoadSLAParserConfig()
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

	sender, err := dispatch.NewSender(awsCfg, cfg)
	if err != nil {
		logger.Error("cannot create sender", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var opts []alarm.Option
	if cfg.FailFast {
		opts = append(opts, alarm.WithFailFast())
	}

	tp, err := telemetry.NewTracerProvider(ctx, "sla-parser")
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
		"started sla parser",
		slog.String("target", string(cfg.Target)),
		slog.String("region", cfg.AWSRegion),
		slog.Bool("failFast", cfg.FailFast),
		slog.Float64("initDurationSec", time.Since(startTime).Seconds()),
	)

	h := handler.NewNotificationHandler(loader, sender, logger, opts...)
	lambda.Start(
		otellambda.InstrumentHandler(
			h.HandleRequest,
			otellambda.WithTracerProvider(tp),
			otellambda.WithFlusher(tp)),
	)
}
