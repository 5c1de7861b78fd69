package integration

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/oshokin/pkgbuild-sync/internal/service/release"
)

// payloadBinary mimics the user agent string embedded in an Electron executable.
const payloadBinary = "\x7fELF\x02\x01\x01\x00\x00\x00" +
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"FreeShow/1.3.0 Chrome/126.0.6478.234 Electron/31.7.7 Safari/537.36\x00\x00"

// buildPayload returns a tarball laid out like the upstream .deb payload,
// compressed according to the extension of member.
func buildPayload(t *testing.T, member string) []byte {
	t.Helper()

	var raw bytes.Buffer

	tw := tar.NewWriter(&raw)

	for _, dir := range []string{"./opt/", "./opt/FreeShow/", "./usr/", "./usr/bin/"} {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: dir, Typeflag: tar.TypeDir, Mode: 0o755}))
	}

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "./opt/FreeShow/freeshow",
		Typeflag: tar.TypeReg,
		Mode:     0o755,
		Size:     int64(len(payloadBinary)),
	}))

	_, err := tw.Write([]byte(payloadBinary))
	require.NoError(t, err)

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "./usr/bin/freeshow",
		Typeflag: tar.TypeSymlink,
		Linkname: "/opt/FreeShow/freeshow",
	}))
	require.NoError(t, tw.Close())

	var compressed bytes.Buffer

	switch {
	case strings.HasSuffix(member, ".xz"):
		w, err := xz.NewWriter(&compressed)
		require.NoError(t, err)
		_, err = io.Copy(w, &raw)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case strings.HasSuffix(member, ".gz"):
		w := gzip.NewWriter(&compressed)
		_, err := io.Copy(w, &raw)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		t.Fatalf("unsupported payload member %q", member)
	}

	return compressed.Bytes()
}

// buildDeb wraps a payload into an ar container the way dpkg-deb does.
func buildDeb(t *testing.T, member string) []byte {
	t.Helper()

	members := []struct {
		name string
		body []byte
	}{
		{"debian-binary", []byte("2.0\n")},
		{"control.tar.gz", buildControl(t)},
		{member, buildPayload(t, member)},
	}

	var buf bytes.Buffer

	w := ar.NewWriter(&buf)
	require.NoError(t, w.WriteGlobalHeader())

	for _, m := range members {
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    m.name,
			ModTime: time.Unix(1_700_000_000, 0),
			Mode:    0o644,
			Size:    int64(len(m.body)),
		}))

		_, err := w.Write(m.body)
		require.NoError(t, err)
	}

	return buf.Bytes()
}

func buildControl(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	control := "Package: freeshow\nVersion: 1.3.0\nArchitecture: amd64\n"

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "./control",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(control)),
	}))

	_, err := tw.Write([]byte(control))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())

	return buf.Bytes()
}

// startUpstream serves the GitHub latest release endpoint and the release asset.
func startUpstream(t *testing.T, tag string, deb []byte) *httptest.Server {
	t.Helper()

	assetName := "FreeShow-" + strings.TrimPrefix(tag, "v") + "-amd64.deb"
	sum := sha256.Sum256(deb)

	var ts *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/ChurchApps/FreeShow/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github+json" {
			http.Error(w, "bad accept header", http.StatusBadRequest)

			return
		}

		_ = json.NewEncoder(w).Encode(&release.Release{
			Tag: tag,
			Assets: []release.Asset{
				{
					Name:        "FreeShow-" + strings.TrimPrefix(tag, "v") + ".AppImage",
					DownloadURL: ts.URL + "/appimage",
					Digest:      "sha256:" + strings.Repeat("0", 64),
				},
				{
					Name:        assetName,
					DownloadURL: ts.URL + "/ChurchApps/FreeShow/releases/download/" + tag + "/" + assetName,
					Digest:      "sha256:" + hex.EncodeToString(sum[:]),
				},
			},
		})
	})
	mux.HandleFunc("/ChurchApps/FreeShow/releases/download/"+tag+"/"+assetName, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(deb)
	})

	ts = httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

// prepareWorkspace copies the manifest fixtures into a temporary directory
// and makes it the working directory.
func prepareWorkspace(t *testing.T) string {
	t.Helper()

	primary, err := os.ReadFile(filepath.Join("testdata", "PKGBUILD"))
	require.NoError(t, err)

	secondary, err := os.ReadFile(filepath.Join("testdata", "SRCINFO"))
	require.NoError(t, err)

	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "PKGBUILD"), primary, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".SRCINFO"), secondary, 0o644))

	return dir
}
