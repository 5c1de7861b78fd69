package manifest

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	domain "github.com/oshokin/pkgbuild-sync/internal/domain/manifest"
	"github.com/oshokin/pkgbuild-sync/internal/logger"

	// Ensure SHA256 is available for write verification.
	_ "crypto/sha256"
)

// Repository defines persistence operations for the manifest documents.
type Repository interface {
	ReadCurrent(ctx context.Context) (*domain.Record, error)
	ReadSecondary(ctx context.Context) (*domain.Secondary, error)
	Texts() (primary, secondary string, err error)
	WriteAll(ctx context.Context, primary, secondary string) error
}

// Store reads and writes the manifest documents on disk.
type Store struct {
	// primaryPath is the PKGBUILD location.
	primaryPath string
	// secondaryPath is the .SRCINFO location.
	secondaryPath string
	// settings carries the checksum key and the .SRCINFO value prefixes.
	settings *domain.Settings
	// primaryText and secondaryText hold the documents as read at the start of the run.
	primaryText   string
	secondaryText string
	// mu protects the cached texts.
	mu sync.Mutex
}

// writeChecksum is used to verify the bytes handed to the atomic writer.
const writeChecksum = crypto.SHA256

// defaultFileMode is used when the target does not exist yet.
const defaultFileMode os.FileMode = 0o644

// ErrNotRead is returned when texts are requested before the documents were read.
var ErrNotRead = errors.New("manifest documents have not been read")

// NewStore creates a store for the given document paths.
func NewStore(primaryPath, secondaryPath string, settings *domain.Settings) *Store {
	return &Store{
		primaryPath:   filepath.Clean(primaryPath),
		secondaryPath: filepath.Clean(secondaryPath),
		settings:      settings,
	}
}

// ReadCurrent reads the PKGBUILD document and returns its owned fields.
func (s *Store) ReadCurrent(ctx context.Context) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := readDocument(s.primaryPath)
	if err != nil {
		return nil, err
	}

	record, err := domain.ParsePrimary(text, s.settings.ChecksumKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.primaryPath, err)
	}

	s.primaryText = text

	logger.DebugKV(ctx, "Read primary manifest", "path", s.primaryPath, "tag", record.Tag)

	return record, nil
}

// ReadSecondary reads the .SRCINFO document and returns its owned fields.
func (s *Store) ReadSecondary(ctx context.Context) (*domain.Secondary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := readDocument(s.secondaryPath)
	if err != nil {
		return nil, err
	}

	secondary, err := domain.ParseSecondary(text, s.settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.secondaryPath, err)
	}

	s.secondaryText = text

	logger.DebugKV(ctx, "Read secondary manifest", "path", s.secondaryPath, "pkgver", secondary.PackageVersion)

	return secondary, nil
}

// Texts returns the documents as they were read.
func (s *Store) Texts() (primary, secondary string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.primaryText == "" || s.secondaryText == "" {
		return "", "", ErrNotRead
	}

	return s.primaryText, s.secondaryText, nil
}

// WriteAll replaces both documents. Callers compute both texts before
// calling it so that a patch failure never leaves one document rewritten.
func (s *Store) WriteAll(ctx context.Context, primary, secondary string) error {
	if err := s.Write(ctx, s.primaryPath, primary); err != nil {
		return err
	}

	return s.Write(ctx, s.secondaryPath, secondary)
}

// Write atomically replaces the document at path with text, keeping its file mode.
func (s *Store) Write(ctx context.Context, path, text string) error {
	mode := defaultFileMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	hasher := writeChecksum.New()
	_, _ = hasher.Write([]byte(text))

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: mode,
		Checksum:   hasher.Sum(nil),
		Hash:       writeChecksum,
	}

	if err := goupdate.Apply(bytes.NewReader([]byte(text)), options); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	// The replaced file may be kept as a backup depending on the platform.
	dir, name := filepath.Split(path)
	for _, backup := range []string{path + ".old", filepath.Join(dir, "."+name+".old")} {
		if _, err := os.Stat(backup); err == nil {
			_ = os.Remove(backup)
		}
	}

	logger.InfoKV(ctx, "Wrote manifest", "path", path, "bytes", len(text))

	return nil
}

// readDocument returns the file contents as text.
func readDocument(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read manifest %s: %w", path, err)
	}

	return string(contents), nil
}
