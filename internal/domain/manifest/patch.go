package manifest

import (
	"fmt"
	"slices"
	"strings"
)

// PKGBUILD variables owned by the sync.
const (
	VarTag            = "_tag"
	VarPackageVersion = "pkgver"
	VarAssetVersion   = "_assetver"
	VarAssetName      = "_assetname"
	VarRuntimeVersion = "_electronversion"
)

// .SRCINFO keys owned by the sync.
const (
	KeyPackageVersion = "pkgver"
	KeyProvides       = "provides"
	KeyDepends        = "depends"
	KeySource         = "source"
)

// Settings carries the fixed, release-independent parts of both documents.
type Settings struct {
	// ChecksumKey is the checksum variable/key name, e.g. "sha256sums".
	ChecksumKey string
	// CompanionChecksum is always written as the first checksum.
	CompanionChecksum string
	// PackageName is the name in "provides = <name>=<version>".
	PackageName string
	// RuntimePackage is the dependency name prefix, e.g. "electron".
	RuntimePackage string
	// SourceName is the local file name prefix of the asset source entry.
	SourceName string
	// AssetSuffix is appended to the local source file name, e.g. "-amd64.deb".
	AssetSuffix string
	// DownloadBase is the release download host, e.g. "https://github.com".
	DownloadBase string
	// Repository is the upstream repository in owner/name form.
	Repository string
}

// ParsePrimary reads the owned fields of a PKGBUILD document.
func ParsePrimary(doc, checksumKey string) (*Record, error) {
	var (
		record Record
		err    error
	)

	fields := []struct {
		name   string
		target *string
	}{
		{VarTag, &record.Tag},
		{VarPackageVersion, &record.PackageVersion},
		{VarAssetVersion, &record.AssetVersion},
		{VarRuntimeVersion, &record.RuntimeMajor},
	}

	for _, field := range fields {
		if *field.target, err = ExtractVar(doc, field.name); err != nil {
			return nil, err
		}
	}

	if record.Checksums, err = ExtractArray(doc, checksumKey); err != nil {
		return nil, err
	}

	return &record, nil
}

// ParseSecondary reads the owned fields of a .SRCINFO document.
func ParseSecondary(doc string, settings *Settings) (*Secondary, error) {
	var (
		secondary Secondary
		err       error
	)

	if secondary.PackageVersion, err = ExtractEntry(doc, KeyPackageVersion, ""); err != nil {
		return nil, err
	}

	if secondary.Provides, err = ExtractEntry(doc, KeyProvides, settings.providesPrefix()); err != nil {
		return nil, err
	}

	if secondary.Depends, err = ExtractEntry(doc, KeyDepends, settings.RuntimePackage); err != nil {
		return nil, err
	}

	if secondary.Source, err = ExtractEntry(doc, KeySource, settings.sourcePrefix()); err != nil {
		return nil, err
	}

	secondary.Checksums = ExtractEntries(doc, settings.ChecksumKey)
	if len(secondary.Checksums) == 0 {
		return nil, &MissingFieldError{Field: settings.ChecksumKey}
	}

	return &secondary, nil
}

// PatchPrimary rewrites every owned PKGBUILD field for latest.
// All fields are rewritten, including those that did not change.
func PatchPrimary(doc string, latest *Latest, settings *Settings) (string, error) {
	replacements := []struct {
		name  string
		value string
	}{
		{VarPackageVersion, latest.PackageVersion},
		{VarTag, latest.Tag},
		{VarAssetVersion, latest.AssetVersion},
		{VarAssetName, latest.AssetName},
		{VarRuntimeVersion, latest.RuntimeMajor},
	}

	var err error

	for _, r := range replacements {
		if doc, err = ReplaceVar(doc, r.name, r.value); err != nil {
			return "", err
		}
	}

	return ReplaceArray(doc, settings.ChecksumKey, settings.checksums(latest))
}

// PatchSecondary rewrites every owned .SRCINFO field for latest.
// Checksum lines are matched in document order: the first receives the
// companion checksum and the second the asset checksum.
func PatchSecondary(doc string, latest *Latest, settings *Settings) (string, error) {
	replacements := []struct {
		key    string
		prefix string
		value  string
	}{
		{KeyPackageVersion, "", latest.PackageVersion},
		{KeyProvides, settings.providesPrefix(), settings.providesPrefix() + latest.PackageVersion},
		{KeyDepends, settings.RuntimePackage, settings.RuntimePackage + latest.RuntimeMajor},
		{KeySource, settings.sourcePrefix(), settings.SourceEntry(latest)},
	}

	var err error

	for _, r := range replacements {
		if doc, err = ReplaceEntry(doc, r.key, r.prefix, r.value); err != nil {
			return "", err
		}
	}

	return ReplaceEntries(doc, settings.ChecksumKey, settings.checksums(latest))
}

// SourceEntry builds the .SRCINFO source value for the release asset:
// "<name>-<pkgver><suffix>::<base>/<repo>/releases/download/<tag>/<asset>".
func (s *Settings) SourceEntry(latest *Latest) string {
	return fmt.Sprintf("%s%s%s::%s/%s/releases/download/%s/%s",
		s.sourcePrefix(),
		latest.PackageVersion,
		s.AssetSuffix,
		strings.TrimRight(s.DownloadBase, "/"),
		s.Repository,
		latest.Tag,
		latest.AssetName,
	)
}

// Lockstep returns the names of .SRCINFO fields that disagree with the PKGBUILD record.
func Lockstep(primary *Record, secondary *Secondary, settings *Settings) []string {
	var drift []string

	if secondary.PackageVersion != primary.PackageVersion {
		drift = append(drift, KeyPackageVersion)
	}

	if secondary.Provides != settings.providesPrefix()+primary.PackageVersion {
		drift = append(drift, KeyProvides)
	}

	if secondary.Depends != settings.RuntimePackage+primary.RuntimeMajor {
		drift = append(drift, KeyDepends)
	}

	if !slices.Equal(secondary.Checksums, primary.Checksums) {
		drift = append(drift, settings.ChecksumKey)
	}

	return drift
}

func (s *Settings) checksums(latest *Latest) []string {
	return []string{s.CompanionChecksum, latest.AssetChecksum}
}

func (s *Settings) providesPrefix() string {
	return s.PackageName + "="
}

func (s *Settings) sourcePrefix() string {
	return s.SourceName + "-"
}
