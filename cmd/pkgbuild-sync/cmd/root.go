package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oshokin/pkgbuild-sync/internal/config"
	"github.com/oshokin/pkgbuild-sync/internal/logger"
	"github.com/oshokin/pkgbuild-sync/internal/service/syncer"
	"github.com/oshokin/pkgbuild-sync/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to stderr.
	logLevel string
	// logFormat selects console or JSON log lines.
	logFormat string
	// dryRun reports the result without touching the manifests.
	dryRun bool

	errUnknownLogLevel  = errors.New("unknown log level")
	errUnknownLogFormat = errors.New("unknown log format")

	// rootCmd represents the base command for synchronizing the manifests.
	rootCmd = &cobra.Command{
		Use:   "pkgbuild-sync",
		Short: "Sync PKGBUILD and .SRCINFO with the latest upstream release.",
		Long: `Keeps an Arch Linux PKGBUILD and its generated .SRCINFO in step with the latest
GitHub release of the upstream application.

The latest release is resolved, its .deb asset is downloaded and verified, and the
runtime major version is read from the packaged executable. When the tag, asset
checksum, asset version or runtime major version changed, both documents are
rewritten; otherwise nothing is touched.

The outcome is appended to the file named by GITHUB_ENV (PKG_UPDATED, NEW_PKGVER)
and summarized on stdout. Settings come from the configuration file, PKGSYNC_*
environment variables and an optional .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%q: %w", logLevel, errUnknownLogLevel)
			}

			format, ok := logger.ParseFormat(logFormat)
			if !ok {
				return fmt.Errorf("%q: %w", logFormat, errUnknownLogFormat)
			}

			logger.Configure(level, format)

			// Variables from .env never override the real environment.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &syncer.Options{
				ConfigPath: configPath,
				DryRun:     dryRun,
				Stdout:     cmd.OutOrStdout(),
			}

			return syncer.Run(ctx, options)
		},
	}
)

// Execute runs the pkgbuild-sync CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(initConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "Command failed", "error", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logger.FormatConsole), "log format (console, json)")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report the result without writing the manifests")
}
