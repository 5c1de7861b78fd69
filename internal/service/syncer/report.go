package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/pkgbuild-sync/internal/logger"
)

// Keys appended to the CI environment file.
const (
	EnvUpdated        = "PKG_UPDATED"
	EnvPackageVersion = "NEW_PKGVER"
)

// Report appends the outcome to envFile (when set) and prints the summary line to stdout.
func Report(ctx context.Context, outcome *Outcome, stdout io.Writer, envFile string) error {
	if envFile != "" {
		if err := appendEnv(envFile, outcome); err != nil {
			return err
		}

		logger.DebugKV(ctx, "Appended outcome to environment file", "path", envFile)
	}

	if _, err := fmt.Fprintln(stdout, outcome.Summary()); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}

	return nil
}

// appendEnv writes unquoted KEY=value lines, the format GitHub Actions reads.
func appendEnv(path string, outcome *Outcome) error {
	updated := "0"
	if outcome.Written {
		updated = "1"
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open environment file: %w", err)
	}

	_, err = fmt.Fprintf(file, "%s=%s\n%s=%s\n", EnvUpdated, updated, EnvPackageVersion, outcome.PackageVersion)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write environment file: %w", err)
	}

	return nil
}
