package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// dirMode is used for directories created during extraction.
const dirMode os.FileMode = 0o755

// Native extracts tarballs in-process. The compression is chosen by file
// extension: .gz/.tgz, .zst/.zstd, .xz or plain .tar.
type Native struct{}

// NewNative creates the in-process extractor.
func NewNative() *Native {
	return &Native{}
}

// Name returns "native".
func (*Native) Name() string {
	return "native"
}

// Available always reports true.
func (*Native) Available() bool {
	return true
}

// Extract unpacks directories and regular files of archivePath into destDir.
// Links and special files are skipped; entries escaping destDir are rejected.
func (n *Native) Extract(ctx context.Context, archivePath, destDir string) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", archivePath, ErrExtraction, err)
	}

	defer func() {
		_ = file.Close()
	}()

	stream, closeStream, err := decompress(archivePath, file)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", archivePath, ErrExtraction, err)
	}

	defer closeStream()

	if err = untar(ctx, tar.NewReader(stream), destDir); err != nil {
		return fmt.Errorf("%s: %w: %w", archivePath, ErrExtraction, err)
	}

	return nil
}

// decompress wraps r with the decoder matching the archive extension.
func decompress(name string, r io.Reader) (io.Reader, func(), error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".gz", ".tgz":
		decoder, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}

		return decoder, func() { _ = decoder.Close() }, nil
	case ".zst", ".zstd":
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}

		return decoder, decoder.Close, nil
	case ".xz":
		decoder, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}

		return decoder, func() {}, nil
	case ".tar":
		return r, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %q", ext)
	}
}

// untar writes the entries of tr below destDir.
func untar(ctx context.Context, tr *tar.Reader, destDir string) error {
	root := filepath.Clean(destDir) + string(os.PathSeparator)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.Clean("/"+header.Name))
		if !strings.HasPrefix(target+string(os.PathSeparator), root) {
			return fmt.Errorf("invalid entry path %q", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, dirMode); err != nil {
				return fmt.Errorf("mkdir %q: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err = writeEntry(tr, target, header.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("write %q: %w", header.Name, err)
			}
		default:
			continue
		}
	}
}

// writeEntry copies the current tar entry into target.
func writeEntry(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o200)
	if err != nil {
		return err
	}

	if _, err = io.Copy(file, r); err != nil {
		_ = file.Close()

		return err
	}

	return file.Close()
}
