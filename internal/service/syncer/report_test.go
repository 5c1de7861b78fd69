package syncer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		outcome     *Outcome
		wantUpdated string
		wantVersion string
		wantSummary string
	}{
		{
			name:        "updated",
			outcome:     &Outcome{Changed: true, Written: true, PackageVersion: "1.3.0", Tag: "v1.3.0"},
			wantUpdated: "1",
			wantVersion: "1.3.0",
			wantSummary: "Updated to 1.3.0 (v1.3.0).\n",
		},
		{
			name:        "up to date",
			outcome:     &Outcome{PackageVersion: "1.2.3", Tag: "v1.2.3"},
			wantUpdated: "0",
			wantVersion: "1.2.3",
			wantSummary: "No update available.\n",
		},
		{
			name:        "dry run",
			outcome:     &Outcome{Changed: true, PackageVersion: "1.3.0", Tag: "v1.3.0"},
			wantUpdated: "0",
			wantVersion: "1.3.0",
			wantSummary: "Update available: 1.3.0 (v1.3.0). Dry run, nothing written.\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			envFile := filepath.Join(t.TempDir(), "github.env")
			require.NoError(t, os.WriteFile(envFile, []byte("EXISTING=kept\n"), 0o644))

			var stdout bytes.Buffer

			require.NoError(t, Report(context.Background(), tt.outcome, &stdout, envFile))
			require.Equal(t, tt.wantSummary, stdout.String())

			env, err := godotenv.Read(envFile)
			require.NoError(t, err)
			require.Equal(t, map[string]string{
				"EXISTING":        "kept",
				EnvUpdated:        tt.wantUpdated,
				EnvPackageVersion: tt.wantVersion,
			}, env)
		})
	}
}

func TestReport_NoEnvFile(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	require.NoError(t, Report(context.Background(), &Outcome{PackageVersion: "1.2.3"}, &stdout, ""))
	require.Equal(t, "No update available.\n", stdout.String())
}

func TestWriteMetrics(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pkgbuild_sync.prom")
	outcome := &Outcome{Changed: true, Written: true, PackageVersion: "1.3.0", Tag: "v1.3.0", RuntimeMajor: "31"}

	require.NoError(t, writeMetrics(path, outcome, 2*time.Second, nil))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(contents)
	require.Contains(t, text, "pkgbuild_sync_last_run_success 1\n")
	require.Contains(t, text, "pkgbuild_sync_last_run_updated 1\n")
	require.Contains(t, text, "pkgbuild_sync_last_run_duration_seconds 2\n")
	require.Contains(t, text, "pkgbuild_sync_runtime_major 31\n")
	require.Contains(t, text, `pkgver="1.3.0"`)

	require.NoError(t, writeMetrics(path, nil, time.Second, os.ErrNotExist))

	contents, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "pkgbuild_sync_last_run_success 0\n")
	require.False(t, strings.Contains(string(contents), "pkgbuild_sync_runtime_major"))
}
