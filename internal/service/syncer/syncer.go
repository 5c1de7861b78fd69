package syncer

import (
	"context"
	"fmt"

	"github.com/oshokin/pkgbuild-sync/internal/config"
	domain "github.com/oshokin/pkgbuild-sync/internal/domain/manifest"
	"github.com/oshokin/pkgbuild-sync/internal/logger"
	"github.com/oshokin/pkgbuild-sync/internal/repository/manifest"
	"github.com/oshokin/pkgbuild-sync/internal/service/release"
)

// ReleaseSource returns the latest published release of a repository.
type ReleaseSource interface {
	FetchLatest(ctx context.Context, repository string) (*release.Release, error)
}

// VersionDetector returns the runtime major version packaged in a release asset.
type VersionDetector interface {
	Detect(ctx context.Context, asset *release.Asset, checksum string) (string, error)
}

// Outcome describes the result of a single sync.
type Outcome struct {
	// Changed is true when the latest release differs from the recorded one.
	Changed bool
	// Written is true when the patched documents were written back.
	Written bool
	// PackageVersion is the latest pkgver when changed, the recorded one otherwise.
	PackageVersion string
	// Tag is the release tag matching PackageVersion.
	Tag string
	// RuntimeMajor is the runtime major version matching PackageVersion.
	RuntimeMajor string
	// Differences names the fingerprint components that changed.
	Differences []string
}

// Summary returns the single human readable result line.
func (o *Outcome) Summary() string {
	switch {
	case o.Written:
		return fmt.Sprintf("Updated to %s (%s).", o.PackageVersion, o.Tag)
	case o.Changed:
		return fmt.Sprintf("Update available: %s (%s). Dry run, nothing written.", o.PackageVersion, o.Tag)
	default:
		return "No update available."
	}
}

// Syncer compares the manifest with the latest release and patches it when needed.
type Syncer struct {
	cfg      *config.Config
	settings *domain.Settings
	store    manifest.Repository
	releases ReleaseSource
	detector VersionDetector
	dryRun   bool
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithDryRun computes the patched documents without writing them.
func WithDryRun(dryRun bool) SyncerOption {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

// New creates a syncer over the given collaborators.
func New(
	cfg *config.Config,
	store manifest.Repository,
	releases ReleaseSource,
	detector VersionDetector,
	opts ...SyncerOption,
) *Syncer {
	s := &Syncer{
		cfg:      cfg,
		settings: ManifestSettings(cfg),
		store:    store,
		releases: releases,
		detector: detector,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ManifestSettings derives the release-independent document settings from cfg.
func ManifestSettings(cfg *config.Config) *domain.Settings {
	return &domain.Settings{
		ChecksumKey:       cfg.ChecksumKey(),
		CompanionChecksum: cfg.CompanionChecksum,
		PackageName:       cfg.PackageName,
		RuntimePackage:    cfg.RuntimePackage,
		SourceName:        cfg.SourceName,
		AssetSuffix:       cfg.AssetSuffix,
		DownloadBase:      cfg.DownloadBase,
		Repository:        cfg.Repository,
	}
}

// Sync performs one comparison and, when the release changed, rewrites both documents.
// Nothing is written unless both patched texts were computed successfully.
func (s *Syncer) Sync(ctx context.Context) (*Outcome, error) {
	current, err := s.store.ReadCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current manifest: %w", err)
	}

	secondary, err := s.store.ReadSecondary(ctx)
	if err != nil {
		return nil, fmt.Errorf("read secondary manifest: %w", err)
	}

	if drift := domain.Lockstep(current, secondary, s.settings); len(drift) > 0 {
		logger.WarnKV(ctx, "Secondary manifest disagrees with primary", "fields", drift)
	}

	logger.InfoKV(ctx, "Current manifest", "tag", current.Tag, "pkgver", current.PackageVersion,
		"runtime_major", current.RuntimeMajor)

	latest, err := s.resolveLatest(ctx)
	if err != nil {
		return nil, err
	}

	if domain.IsUpToDate(current, latest.Fingerprint) {
		logger.Info(ctx, "Manifest is up to date")

		return &Outcome{
			PackageVersion: current.PackageVersion,
			Tag:            current.Tag,
			RuntimeMajor:   current.RuntimeMajor,
		}, nil
	}

	outcome := &Outcome{
		Changed:        true,
		PackageVersion: latest.PackageVersion,
		Tag:            latest.Tag,
		RuntimeMajor:   latest.RuntimeMajor,
		Differences:    domain.Diff(current.Fingerprint(), latest.Fingerprint),
	}

	logger.InfoKV(ctx, "Release changed", "fields", outcome.Differences, "tag", latest.Tag)

	primaryText, secondaryText, err := s.store.Texts()
	if err != nil {
		return nil, err
	}

	patchedPrimary, err := domain.PatchPrimary(primaryText, latest, s.settings)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", s.cfg.PKGBUILD, err)
	}

	patchedSecondary, err := domain.PatchSecondary(secondaryText, latest, s.settings)
	if err != nil {
		return nil, fmt.Errorf("patch %s: %w", s.cfg.SRCINFO, err)
	}

	if s.dryRun {
		logger.Info(ctx, "Dry run, leaving manifests untouched")

		return outcome, nil
	}

	if err = s.store.WriteAll(ctx, patchedPrimary, patchedSecondary); err != nil {
		return nil, err
	}

	outcome.Written = true

	return outcome, nil
}

// resolveLatest builds the latest release state, including the detected runtime version.
func (s *Syncer) resolveLatest(ctx context.Context) (*domain.Latest, error) {
	latestRelease, err := s.releases.FetchLatest(ctx, s.cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("resolve release: %w", err)
	}

	asset, err := latestRelease.Select(s.cfg.AssetSuffix)
	if err != nil {
		return nil, err
	}

	checksum, err := release.ParseDigest(asset.Digest, s.cfg.DigestAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", asset.Name, err)
	}

	logger.InfoKV(ctx, "Latest release", "tag", latestRelease.Tag, "asset", asset.Name)

	major, err := s.detector.Detect(ctx, asset, checksum)
	if err != nil {
		return nil, fmt.Errorf("detect runtime version: %w", err)
	}

	return &domain.Latest{
		Fingerprint: domain.Fingerprint{
			Tag:           latestRelease.Tag,
			AssetChecksum: checksum,
			AssetVersion:  release.AssetVersion(asset.Name, s.cfg.AssetPrefix, s.cfg.AssetSuffix),
			RuntimeMajor:  major,
		},
		PackageVersion: release.PackageVersion(latestRelease.Tag),
		AssetName:      asset.Name,
	}, nil
}
