package manifest

// Fingerprint is the identity tuple used to decide whether upstream changed
// in any way that matters for packaging.
type Fingerprint struct {
	Tag           string
	AssetChecksum string
	AssetVersion  string
	RuntimeMajor  string
}

// IsUpToDate reports whether the manifest already records the latest fingerprint.
// The companion checksum is not part of the comparison.
func IsUpToDate(current *Record, latest Fingerprint) bool {
	return current.Fingerprint() == latest
}

// Diff returns the names of the components that differ between a and b.
func Diff(a, b Fingerprint) []string {
	var changed []string

	if a.Tag != b.Tag {
		changed = append(changed, "tag")
	}

	if a.AssetChecksum != b.AssetChecksum {
		changed = append(changed, "asset_checksum")
	}

	if a.AssetVersion != b.AssetVersion {
		changed = append(changed, "asset_version")
	}

	if a.RuntimeMajor != b.RuntimeMajor {
		changed = append(changed, "runtime_major")
	}

	return changed
}
