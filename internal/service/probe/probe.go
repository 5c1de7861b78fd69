package probe

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/oshokin/pkgbuild-sync/internal/archive"
	"github.com/oshokin/pkgbuild-sync/internal/logger"
	"github.com/oshokin/pkgbuild-sync/internal/service/release"
)

var (
	// ErrBinaryNotFound is returned when no candidate executable path exists after extraction.
	ErrBinaryNotFound = errors.New("application binary not found in package")
	// ErrRuntimeVersionNotFound is returned when the binary holds no runtime version string.
	ErrRuntimeVersionNotFound = errors.New("runtime version not found in binary")
	// ErrChecksumMismatch is returned when the downloaded asset does not match its digest.
	ErrChecksumMismatch = errors.New("downloaded asset checksum mismatch")
	// ErrBadHTTPStatus is returned when the asset download answers with a non-200 status.
	ErrBadHTTPStatus = release.ErrBadHTTPStatus
	// ErrArchiveExtraction is returned when the package or its payload cannot be unpacked.
	ErrArchiveExtraction = archive.ErrExtraction
)

// Settings describes where the runtime version is hidden inside the package.
type Settings struct {
	// InnerArchivePrefix selects the payload member of the ar container, e.g. "data.tar.".
	InnerArchivePrefix string
	// BinaryPaths are candidate executable paths relative to the payload root.
	BinaryPaths []string
	// EngineToken is the browser engine token, e.g. "Chrome".
	EngineToken string
	// RuntimeToken is the runtime framework token, e.g. "Electron".
	RuntimeToken string
	// Hash verifies the downloaded asset against its release digest.
	Hash crypto.Hash
}

// Probe downloads release assets and detects the embedded runtime major version.
type Probe struct {
	// settings holds the package layout.
	settings *Settings
	// extractor unpacks the payload tarball.
	extractor archive.Extractor
	// client downloads assets.
	client *http.Client
	// pattern captures the runtime major version.
	pattern *regexp.Regexp
}

// Option configures probe behaviour.
type Option func(*Probe)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Probe) {
		if client != nil {
			p.client = client
		}
	}
}

// New creates a probe using extractor for the payload tarball.
func New(settings *Settings, extractor archive.Extractor, opts ...Option) *Probe {
	p := &Probe{
		settings:  settings,
		extractor: extractor,
		client:    http.DefaultClient,
		pattern:   RuntimePattern(settings.EngineToken, settings.RuntimeToken),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Detect downloads asset, verifies it against checksum (hex, may be empty to skip)
// and returns the runtime major version found in the packaged executable.
func (p *Probe) Detect(ctx context.Context, asset *release.Asset, checksum string) (string, error) {
	workdir, err := os.MkdirTemp("", "pkgbuild-sync-")
	if err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}

	defer func() {
		if removeErr := os.RemoveAll(workdir); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove workspace", "path", workdir, "error", removeErr)
		}
	}()

	assetPath := filepath.Join(workdir, assetFilename(asset.Name))

	logger.InfoKV(ctx, "Downloading release asset", "asset", asset.Name)

	if err = p.download(ctx, asset.DownloadURL, assetPath, checksum); err != nil {
		return "", err
	}

	membersDir := filepath.Join(workdir, "members")
	rootDir := filepath.Join(workdir, "root")

	for _, dir := range []string{membersDir, rootDir} {
		if err = os.Mkdir(dir, 0o700); err != nil {
			return "", fmt.Errorf("create workspace: %w", err)
		}
	}

	payload, err := extractPayload(assetPath, membersDir, p.settings.InnerArchivePrefix)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Unpacking payload", "member", filepath.Base(payload), "extractor", p.extractor.Name())

	if err = p.extractor.Extract(ctx, payload, rootDir); err != nil {
		return "", err
	}

	binary, err := findBinary(rootDir, p.settings.BinaryPaths)
	if err != nil {
		return "", err
	}

	major, err := scanBinary(binary, p.pattern)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Detected runtime version", "runtime", p.settings.RuntimeToken, "major", major)

	return major, nil
}

// findBinary returns the first candidate that is a regular file below root.
func findBinary(root string, candidates []string) (string, error) {
	for _, candidate := range candidates {
		path := filepath.Join(root, filepath.FromSlash(candidate))

		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}

	return "", fmt.Errorf("tried %v: %w", candidates, ErrBinaryNotFound)
}

// scanBinary opens path and searches its printable runs for the runtime pattern.
func scanBinary(path string, pattern *regexp.Regexp) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open binary: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	major, err := FindRuntimeMajor(file, pattern)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return major, nil
}

// assetFilename keeps downloads inside the workspace whatever the asset name.
func assetFilename(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "asset"
	}

	return base
}
