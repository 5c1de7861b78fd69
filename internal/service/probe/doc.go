// Package probe recovers the runtime major version embedded in an upstream
// release package.
//
// The asset is downloaded into a temporary workspace, its ar container is
// opened to find the payload tarball, the payload is unpacked with the
// selected archive.Extractor, and the installed executable is scanned for
// printable text of the form "<engine>/<version> <runtime>/<major>".
// The workspace is removed on every exit path.
package probe
