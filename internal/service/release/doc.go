// Package release resolves the latest upstream GitHub release and derives
// the packaging identity of its platform asset: checksum from the declared
// digest, asset version from the file name and package version from the tag.
package release
