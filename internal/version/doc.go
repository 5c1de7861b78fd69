// Package version exposes build metadata for pkgbuild-sync.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// Builds without ldflags fall back to the module version and VCS data
// recorded by the Go toolchain.
package version
