package integration

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/pkgbuild-sync/internal/config"
	domain "github.com/oshokin/pkgbuild-sync/internal/domain/manifest"
	"github.com/oshokin/pkgbuild-sync/internal/service/syncer"
)

// TestSync_Run_UpdatesManifests serves a real .deb over HTTP and verifies a full
// run rewrites both documents with every extractor available on this host.
//
//nolint:funlen // Integration test requires comprehensive setup and verification.
func TestSync_Run_UpdatesManifests(t *testing.T) {
	tests := []struct {
		extractor string
		member    string
	}{
		{extractor: config.ExtractorNative, member: "data.tar.xz"},
		{extractor: config.ExtractorBsdtar, member: "data.tar.gz"},
		{extractor: config.ExtractorTar, member: "data.tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.extractor, func(t *testing.T) {
			if tt.extractor != config.ExtractorNative {
				if _, err := exec.LookPath(tt.extractor); err != nil {
					t.Skipf("%s not installed", tt.extractor)
				}
			}

			// Setup test directory and change working directory.
			dir := prepareWorkspace(t)

			ts := startUpstream(t, "v1.3.0", buildDeb(t, tt.member))

			// Create configuration file pointing to the test HTTP server.
			cfg := config.Default()
			cfg.APIBase = ts.URL
			cfg.Extractors = []string{tt.extractor}
			cfg.MetricsFile = filepath.Join(dir, "pkgbuild_sync.prom")

			require.NoError(t, config.Save(config.DefaultConfigFilename, cfg))

			envFile := filepath.Join(dir, "github.env")

			var stdout bytes.Buffer

			err := syncer.Run(context.Background(), &syncer.Options{
				Stdout:   &stdout,
				Lookuper: envconfig.MapLookuper(map[string]string{"GITHUB_ENV": envFile}),
			})
			require.NoError(t, err)
			require.Equal(t, "Updated to 1.3.0 (v1.3.0).\n", stdout.String())

			// Verify both documents carry the new release.
			primaryText, err := os.ReadFile(filepath.Join(dir, "PKGBUILD"))
			require.NoError(t, err)

			record, err := domain.ParsePrimary(string(primaryText), cfg.ChecksumKey())
			require.NoError(t, err)
			require.Equal(t, "v1.3.0", record.Tag)
			require.Equal(t, "1.3.0", record.PackageVersion)
			require.Equal(t, "1.3.0", record.AssetVersion)
			require.Equal(t, "31", record.RuntimeMajor)
			require.Equal(t, cfg.CompanionChecksum, record.Checksums[0])

			secondaryText, err := os.ReadFile(filepath.Join(dir, ".SRCINFO"))
			require.NoError(t, err)

			secondary, err := domain.ParseSecondary(string(secondaryText), syncer.ManifestSettings(cfg))
			require.NoError(t, err)
			require.Empty(t, domain.Lockstep(record, secondary, syncer.ManifestSettings(cfg)))

			// Verify the side channel and the absence of leftovers.
			env, err := godotenv.Read(envFile)
			require.NoError(t, err)
			require.Equal(t, "1", env[syncer.EnvUpdated])
			require.Equal(t, "1.3.0", env[syncer.EnvPackageVersion])

			require.NoFileExists(t, filepath.Join(dir, syncer.MarkerFilename))
			require.NoFileExists(t, filepath.Join(dir, "PKGBUILD.old"))
			require.FileExists(t, cfg.MetricsFile)

			// A second run is a no-op that leaves the documents byte-identical.
			stdout.Reset()

			err = syncer.Run(context.Background(), &syncer.Options{
				Stdout:   &stdout,
				Lookuper: envconfig.MapLookuper(map[string]string{"GITHUB_ENV": envFile}),
			})
			require.NoError(t, err)
			require.Equal(t, "No update available.\n", stdout.String())

			again, err := os.ReadFile(filepath.Join(dir, "PKGBUILD"))
			require.NoError(t, err)
			require.Equal(t, primaryText, again)
		})
	}
}

// TestSync_Run_DryRun verifies the dry run reports an update without writing it.
func TestSync_Run_DryRun(t *testing.T) {
	dir := prepareWorkspace(t)

	ts := startUpstream(t, "v1.3.0", buildDeb(t, "data.tar.xz"))

	var stdout bytes.Buffer

	err := syncer.Run(context.Background(), &syncer.Options{
		DryRun: true,
		Stdout: &stdout,
		Lookuper: envconfig.MapLookuper(map[string]string{
			"PKGSYNC_API_BASE":   ts.URL,
			"PKGSYNC_EXTRACTORS": config.ExtractorNative,
		}),
	})
	require.NoError(t, err)
	require.Equal(t, "Update available: 1.3.0 (v1.3.0). Dry run, nothing written.\n", stdout.String())

	contents, err := os.ReadFile(filepath.Join(dir, "PKGBUILD"))
	require.NoError(t, err)

	require.Contains(t, string(contents), "\n_tag=v1.2.3\n")
}
