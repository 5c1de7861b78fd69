package probe

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oshokin/pkgbuild-sync/internal/logger"
	"github.com/oshokin/pkgbuild-sync/internal/version"

	// Register the digest algorithms accepted for release assets.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// download streams rawURL into dest and compares the content hash with expected.
func (p *Probe) download(ctx context.Context, rawURL, dest, expected string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download asset: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", rawURL, response.Status, ErrBadHTTPStatus)
	}

	file, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return err
	}

	hasher := p.settings.Hash.New()

	written, err := io.Copy(io.MultiWriter(file, hasher), response.Body)
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("download asset: %w", err)
	}

	if err = file.Close(); err != nil {
		return err
	}

	actual := hex.EncodeToString(hasher.Sum(nil))

	logger.DebugKV(ctx, "Downloaded release asset", "path", dest, "bytes", written, "checksum", actual)

	if expected != "" && actual != expected {
		return fmt.Errorf("expected %s, got %s: %w", expected, actual, ErrChecksumMismatch)
	}

	return nil
}
