package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrExtraction is returned when no extractor is available or extraction fails.
var ErrExtraction = errors.New("archive extraction failed")

// Extractor unpacks an archive file into a destination directory.
type Extractor interface {
	// Name identifies the extractor in configuration and logs.
	Name() string
	// Available reports whether the extractor can run on this host.
	Available() bool
	// Extract unpacks archivePath into destDir.
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Factory builds an extractor by name; it returns false for unknown names.
type Factory func(name string) (Extractor, bool)

// Select returns the first available extractor in order.
func Select(order []string, factory Factory) (Extractor, error) {
	probed := make([]string, 0, len(order))

	for _, name := range order {
		extractor, ok := factory(name)
		if !ok {
			return nil, fmt.Errorf("unknown extractor %q: %w", name, ErrExtraction)
		}

		if extractor.Available() {
			return extractor, nil
		}

		probed = append(probed, name)
	}

	return nil, fmt.Errorf("no extractor available (tried %s): %w", strings.Join(probed, ", "), ErrExtraction)
}

// DefaultFactory knows the "bsdtar", "tar" and "native" extractors.
func DefaultFactory(name string) (Extractor, bool) {
	switch name {
	case "bsdtar", "tar":
		return NewCommand(name), true
	case "native":
		return NewNative(), true
	default:
		return nil, false
	}
}
