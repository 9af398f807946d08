package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/accounts"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/definition"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	definitions string
	archive     string
	accounts    string
	logLevel    string
	logFormat   string

	logger *slog.Logger
}

func (o *rootOptions) loader() *definition.Loader {
	var opts []definition.LoaderOption
	if o.archive != "" {
		opts = append(opts, definition.WithArchive(definition.ZipFile(o.archive)))
	}
	return definition.NewLoader(os.DirFS(o.definitions), o.logger, opts...)
}

func (o *rootOptions) registry() (*accounts.Registry, error) {
	return accounts.Load(os.DirFS(filepath.Dir(o.accounts)), filepath.Base(o.accounts))
}

func Run() error {
	return buildRootCmd().Execute()
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "definitions",
		Short:        "Inspects and exports data quality definitions",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = buildLogger(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.definitions, "definitions", "d", "definitions", "Path to the definitions tree")
	rootCmd.PersistentFlags().StringVar(&opts.archive, "archive", "", "Path to a definitions zip archive used when the tree has no account directory")
	rootCmd.PersistentFlags().StringVar(&opts.accounts, "accounts", "accounts.yaml", "Path to the accounts configuration file")
	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "v", "info", "Logger log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Logger logs format (text, json)")

	rootCmd.AddCommand(
		buildExportCmd(opts),
		buildValidateCmd(opts),
		buildAlarmNamesCmd(opts),
		buildAccountsCmd(opts),
	)
	return rootCmd
}
