package manifest

// Record holds the fields of the primary PKGBUILD document owned by the sync.
type Record struct {
	// Tag is the upstream release tag, e.g. "v1.2.3".
	Tag string
	// PackageVersion is the tag with its leading marker stripped.
	PackageVersion string
	// AssetVersion is the version embedded in the asset file name.
	AssetVersion string
	// RuntimeMajor is the major version of the embedded runtime framework.
	RuntimeMajor string
	// Checksums is the ordered pair [companion, asset].
	Checksums []string
}

// AssetChecksum returns the checksum of the upstream asset, or "" when the
// checksum block has fewer than two entries.
func (r *Record) AssetChecksum() string {
	if len(r.Checksums) < 2 {
		return ""
	}

	return r.Checksums[1]
}

// Fingerprint returns the identity tuple recorded in the manifest.
func (r *Record) Fingerprint() Fingerprint {
	return Fingerprint{
		Tag:           r.Tag,
		AssetChecksum: r.AssetChecksum(),
		AssetVersion:  r.AssetVersion,
		RuntimeMajor:  r.RuntimeMajor,
	}
}

// Secondary holds the .SRCINFO fields that mirror the PKGBUILD record.
type Secondary struct {
	// PackageVersion is the value of "pkgver = ".
	PackageVersion string
	// Provides is the value of the "provides = <name>=<version>" line.
	Provides string
	// Depends is the value of the runtime dependency line, e.g. "electron28".
	Depends string
	// Source is the value of the upstream asset source line.
	Source string
	// Checksums are the checksum line values in document order.
	Checksums []string
}

// Latest is the state of the newest upstream release.
type Latest struct {
	Fingerprint

	// PackageVersion is the release tag with its leading marker stripped.
	PackageVersion string
	// AssetName is the file name of the selected release asset.
	AssetName string
}
