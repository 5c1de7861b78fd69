package syncer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-envconfig"

	"github.com/oshokin/pkgbuild-sync/internal/archive"
	"github.com/oshokin/pkgbuild-sync/internal/config"
	"github.com/oshokin/pkgbuild-sync/internal/logger"
	"github.com/oshokin/pkgbuild-sync/internal/repository/manifest"
	"github.com/oshokin/pkgbuild-sync/internal/service/probe"
	"github.com/oshokin/pkgbuild-sync/internal/service/release"
)

// Options are inputs accepted by the sync entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// DryRun computes the result without writing the manifests.
	DryRun bool
	// Stdout receives the summary line; os.Stdout when nil.
	Stdout io.Writer
	// Lookuper resolves environment overrides; the process environment when nil.
	Lookuper envconfig.Lookuper
	// ExtractorFactory builds archive extractors; archive.DefaultFactory when nil.
	ExtractorFactory archive.Factory
}

// Run executes a single sync and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "pkgbuild-sync")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	started := time.Now()

	cfg, err := config.Load(ctx, opts.ConfigPath, opts.Lookuper)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	releaseMarker, err := acquireMarker(ctx, filepath.Dir(cfg.PKGBUILD))
	if err != nil {
		return err
	}

	defer releaseMarker()

	outcome, err := runSync(ctx, cfg, opts)

	if cfg.MetricsFile != "" {
		if metricsErr := writeMetrics(cfg.MetricsFile, outcome, time.Since(started), err); metricsErr != nil {
			logger.WarnKV(ctx, "Unable to write metrics", "path", cfg.MetricsFile, "error", metricsErr)
		}
	}

	if err != nil {
		logger.ErrorKV(ctx, "Sync failed", "error", err)

		return err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if err = Report(ctx, outcome, stdout, cfg.EnvFile); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Sync completed", "changed", outcome.Changed, "written", outcome.Written,
		"elapsed", time.Since(started).String())

	return nil
}

// runSync wires the production collaborators and runs the syncer.
func runSync(ctx context.Context, cfg *config.Config, opts *Options) (*Outcome, error) {
	factory := opts.ExtractorFactory
	if factory == nil {
		factory = archive.DefaultFactory
	}

	extractor, err := archive.Select(cfg.Extractors, factory)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Selected extractor", "extractor", extractor.Name())

	hash, _ := config.HashFor(cfg.DigestAlgorithm)
	client := &http.Client{Timeout: cfg.Timeout}
	settings := ManifestSettings(cfg)

	detector := probe.New(&probe.Settings{
		InnerArchivePrefix: cfg.InnerArchivePrefix,
		BinaryPaths:        cfg.BinaryPaths,
		EngineToken:        cfg.EngineToken,
		RuntimeToken:       cfg.RuntimeToken,
		Hash:               hash,
	}, extractor, probe.WithHTTPClient(client))

	s := New(
		cfg,
		manifest.NewStore(cfg.PKGBUILD, cfg.SRCINFO, settings),
		release.NewResolver(cfg.APIBase, release.WithHTTPClient(client)),
		detector,
		WithDryRun(opts.DryRun),
	)

	return s.Sync(ctx)
}
