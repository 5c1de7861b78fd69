// Package manifest contains the domain model of the packaging manifest:
// the PKGBUILD record, its .SRCINFO mirror, the release fingerprint used to
// detect drift, and pure text functions that read and rewrite single fields
// without disturbing the rest of a document.
package manifest
