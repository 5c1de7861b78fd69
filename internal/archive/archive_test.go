package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// tarEntry is a single file of a generated test tarball.
type tarEntry struct {
	name string
	body string
}

// buildTarball writes entries as a tar stream compressed according to the file extension of name.
func buildTarball(t *testing.T, dir, name string, entries []tarEntry) string {
	t.Helper()

	var raw bytes.Buffer

	tw := tar.NewWriter(&raw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "./opt/", Typeflag: tar.TypeDir, Mode: 0o755}))

	for _, entry := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     entry.name,
			Typeflag: tar.TypeReg,
			Mode:     0o755,
			Size:     int64(len(entry.body)),
		}))
		_, err := tw.Write([]byte(entry.body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "./usr/bin/app", Typeflag: tar.TypeSymlink, Linkname: "/opt/App/app"}))
	require.NoError(t, tw.Close())

	var compressed bytes.Buffer

	switch filepath.Ext(name) {
	case ".gz":
		w := gzip.NewWriter(&compressed)
		_, err := io.Copy(w, &raw)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case ".zst":
		w, err := zstd.NewWriter(&compressed)
		require.NoError(t, err)
		_, err = io.Copy(w, &raw)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case ".xz":
		w, err := xz.NewWriter(&compressed)
		require.NoError(t, err)
		_, err = io.Copy(w, &raw)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		_, err := io.Copy(&compressed, &raw)
		require.NoError(t, err)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, compressed.Bytes(), 0o644))

	return path
}

// TestNative_Extract verifies every supported compression unpacks regular files.
func TestNative_Extract(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"data.tar.gz", "data.tar.zst", "data.tar.xz", "data.tar"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			archivePath := buildTarball(t, dir, name, []tarEntry{
				{name: "./opt/App/app", body: "binary"},
				{name: "./opt/App/resources/app.asar", body: "asar"},
			})

			dest := filepath.Join(dir, "out")
			require.NoError(t, os.Mkdir(dest, 0o755))
			require.NoError(t, NewNative().Extract(context.Background(), archivePath, dest))

			contents, err := os.ReadFile(filepath.Join(dest, "opt", "App", "app"))
			require.NoError(t, err)
			require.Equal(t, "binary", string(contents))

			// Symlinks are skipped.
			_, err = os.Lstat(filepath.Join(dest, "usr", "bin", "app"))
			require.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

// TestNative_EntriesStayInsideDestination ensures parent references cannot escape the destination.
func TestNative_EntriesStayInsideDestination(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := buildTarball(t, dir, "data.tar.gz", []tarEntry{{name: "../../escape.txt", body: "x"}})

	dest := filepath.Join(dir, "nested", "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, NewNative().Extract(context.Background(), archivePath, dest))

	_, err := os.Stat(filepath.Join(dest, "escape.txt"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestNative_Unsupported verifies unknown compressions and corrupt data are extraction errors.
func TestNative_Unsupported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	lzma := filepath.Join(dir, "data.tar.lzma")
	require.NoError(t, os.WriteFile(lzma, []byte("x"), 0o644))
	require.ErrorIs(t, NewNative().Extract(context.Background(), lzma, dir), ErrExtraction)

	corrupt := filepath.Join(dir, "data.tar.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("not gzip"), 0o644))
	require.ErrorIs(t, NewNative().Extract(context.Background(), corrupt, dir), ErrExtraction)
}

// fakeExtractor is an Extractor with a fixed availability.
type fakeExtractor struct {
	name      string
	available bool
}

func (f *fakeExtractor) Name() string    { return f.name }
func (f *fakeExtractor) Available() bool { return f.available }
func (f *fakeExtractor) Extract(context.Context, string, string) error {
	return nil
}

// TestSelect verifies the priority order and the fallback to later extractors.
func TestSelect(t *testing.T) {
	t.Parallel()

	factory := func(available map[string]bool) Factory {
		return func(name string) (Extractor, bool) {
			ok, known := available[name]
			if !known {
				return nil, false
			}

			return &fakeExtractor{name: name, available: ok}, true
		}
	}

	extractor, err := Select([]string{"bsdtar", "tar", "native"}, factory(map[string]bool{
		"bsdtar": false, "tar": true, "native": true,
	}))
	require.NoError(t, err)
	require.Equal(t, "tar", extractor.Name())

	_, err = Select([]string{"bsdtar", "tar"}, factory(map[string]bool{"bsdtar": false, "tar": false}))
	require.ErrorIs(t, err, ErrExtraction)

	_, err = Select([]string{"unzip"}, factory(map[string]bool{}))
	require.ErrorIs(t, err, ErrExtraction)
}

// TestDefaultFactory verifies the known extractor names.
func TestDefaultFactory(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"bsdtar", "tar", "native"} {
		extractor, ok := DefaultFactory(name)
		require.True(t, ok)
		require.Equal(t, name, extractor.Name())
	}

	_, ok := DefaultFactory("7z")
	require.False(t, ok)
}

// TestCommand_Unavailable verifies a missing tool is neither available nor usable.
func TestCommand_Unavailable(t *testing.T) {
	t.Parallel()

	cmd := NewCommand("bsdtar")
	cmd.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	require.False(t, cmd.Available())

	err := cmd.Extract(context.Background(), "data.tar.xz", t.TempDir())
	require.ErrorIs(t, err, ErrExtraction)
	require.True(t, errors.Is(err, exec.ErrNotFound))
}

// TestCommand_NonzeroExit verifies a failing tool is an extraction error.
func TestCommand_NonzeroExit(t *testing.T) {
	t.Parallel()

	falsePath, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false is not available on this host")
	}

	cmd := NewCommand("tar")
	cmd.lookPath = func(string) (string, error) { return falsePath, nil }

	require.True(t, cmd.Available())
	require.ErrorIs(t, cmd.Extract(context.Background(), "data.tar.xz", t.TempDir()), ErrExtraction)
}
