// Package archive unpacks compressed tarballs through interchangeable extractors.
//
// Command line tools (bsdtar, tar) and an in-process implementation share the
// Extractor interface; Select picks the first one available on the host in a
// configured priority order.
package archive
