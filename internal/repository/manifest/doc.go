// Package manifest persists the PKGBUILD and .SRCINFO documents.
//
// Documents are read once and written back verbatim from patched text, so
// comments, ordering and formatting outside the owned fields never change.
// Writes replace each file atomically.
package manifest
