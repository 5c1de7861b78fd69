package probe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blakesmith/ar"

	"github.com/oshokin/pkgbuild-sync/internal/archive"
)

// extractPayload copies the ar members whose name starts with prefix into
// destDir and returns the path of the lexicographically first one.
func extractPayload(containerPath, destDir, prefix string) (string, error) {
	file, err := os.Open(filepath.Clean(containerPath))
	if err != nil {
		return "", fmt.Errorf("open package: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var (
		reader = ar.NewReader(file)
		names  []string
	)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("read package member: %w: %w", archive.ErrExtraction, err)
		}

		name := filepath.Base(strings.TrimSuffix(strings.TrimSpace(header.Name), "/"))
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		if err = copyMember(reader, filepath.Join(destDir, name)); err != nil {
			return "", fmt.Errorf("extract %s: %w: %w", name, archive.ErrExtraction, err)
		}

		names = append(names, name)
	}

	if len(names) == 0 {
		return "", fmt.Errorf("no %s* member in package: %w", prefix, archive.ErrExtraction)
	}

	sort.Strings(names)

	return filepath.Join(destDir, names[0]), nil
}

// copyMember writes the current member of r into path.
func copyMember(r io.Reader, path string) error {
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, r); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
