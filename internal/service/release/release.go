package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/pkgbuild-sync/internal/config"
)

// tagMarker is the leading character stripped from release tags.
const tagMarker = "v"

var (
	// ErrNoMatchingAsset is returned when no release asset has the platform suffix.
	ErrNoMatchingAsset = errors.New("no release asset matches the platform suffix")
	// ErrDigestFormat is returned when an asset digest lacks the expected algorithm prefix.
	ErrDigestFormat = errors.New("asset digest has unexpected format")
)

// Release is the subset of the GitHub release object used by the sync.
type Release struct {
	// Tag is the release tag name, e.g. "v1.2.3".
	Tag string `json:"tag_name"`
	// Assets are the uploaded release files in listing order.
	Assets []Asset `json:"assets"`
}

// Asset is a single uploaded release file.
type Asset struct {
	// Name is the asset file name.
	Name string `json:"name"`
	// DownloadURL is the public download location.
	DownloadURL string `json:"browser_download_url"`
	// Digest is the content digest in "<algorithm>:<hex>" form.
	Digest string `json:"digest"`
}

// Select returns the first asset, in listing order, whose name ends with suffix.
func (r *Release) Select(suffix string) (*Asset, error) {
	for i := range r.Assets {
		if strings.HasSuffix(r.Assets[i].Name, suffix) {
			return &r.Assets[i], nil
		}
	}

	return nil, fmt.Errorf("release %s, suffix %q: %w", r.Tag, suffix, ErrNoMatchingAsset)
}

// ParseDigest validates an "<algorithm>:<hex>" digest and returns the hex value.
func ParseDigest(digest, algorithm string) (string, error) {
	hash, ok := config.HashFor(algorithm)
	if !ok {
		return "", fmt.Errorf("algorithm %q: %w", algorithm, ErrDigestFormat)
	}

	value, found := strings.CutPrefix(digest, strings.ToLower(algorithm)+":")
	if !found {
		return "", fmt.Errorf("%q lacks %s prefix: %w", digest, algorithm, ErrDigestFormat)
	}

	if !config.IsHexDigest(value, hash) {
		return "", fmt.Errorf("%q is not a %s digest: %w", digest, algorithm, ErrDigestFormat)
	}

	return value, nil
}

// AssetVersion removes the fixed prefix and suffix from an asset file name.
func AssetVersion(name, prefix, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
}

// PackageVersion strips a single leading marker from a release tag.
func PackageVersion(tag string) string {
	return strings.TrimPrefix(tag, tagMarker)
}
