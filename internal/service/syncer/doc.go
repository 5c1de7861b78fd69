// Package syncer runs one synchronization of the packaging manifest with the
// latest upstream release.
//
// A run reads both manifest documents, resolves the latest release, detects
// the runtime major version packaged in its asset and compares the result
// with the recorded fingerprint. When anything differs both documents are
// patched in memory and only then written back. The outcome is appended to
// the CI environment file and summarized on stdout.
package syncer
