package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/definition"
)

type exportOptions struct {
	account   string
	outputDir string
	bucket    string
	prefix    string
}

func buildExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Flattens the definitions of an account group into JSON lines",
		Long: "Flattens the metrics and SLAs of every sub-account sharing the parent account's group. " +
			"Records go to stdout, to metrics.jsonl and slas.jsonl in --output-dir, or to S3 with --bucket.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}

	exportCmd.Flags().StringVarP(&opts.account, "account", "a", "", "Parent account ID")
	exportCmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory receiving metrics.jsonl and slas.jsonl")
	exportCmd.Flags().StringVar(&opts.bucket, "bucket", "", "S3 bucket receiving the export")
	exportCmd.Flags().StringVar(&opts.prefix, "prefix", "", "S3 key prefix of the export")
	_ = exportCmd.MarkFlagRequired("account")
	exportCmd.MarkFlagsMutuallyExclusive("output-dir", "bucket")

	return exportCmd
}

func runExport(ctx context.Context, root *rootOptions, opts *exportOptions, stdout io.Writer) error {
	registry, err := root.registry()
	if err != nil {
		return err
	}

	set, err := definition.BuildSet(ctx, root.loader(), registry, opts.account)
	if err != nil {
		return err
	}

	root.logger.InfoContext(ctx, "definitions flattened",
		slog.String("account", opts.account),
		slog.Int("metrics", len(set.Metrics)),
		slog.Int("slas", len(set.SLAs)))

	switch {
	case opts.bucket != "":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("cannot load aws config: %w", err)
		}
		return definition.NewExporter(s3.NewFromConfig(awsCfg), opts.bucket, opts.prefix).Export(ctx, set)

	case opts.outputDir != "":
		if err := writeFile(filepath.Join(opts.outputDir, definition.MetricsObject), set.EncodeMetrics); err != nil {
			return err
		}
		return writeFile(filepath.Join(opts.outputDir, definition.SLAsObject), set.EncodeSLAs)

	default:
		if err := set.EncodeMetrics(stdout); err != nil {
			return err
		}
		return set.EncodeSLAs(stdout)
	}
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", path, err)
	}

	if err := encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
