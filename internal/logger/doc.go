// Package logger wraps zap for pkgbuild-sync.
//
// A global sugared logger writes to stderr in console or JSON format; the
// context helpers attach a logger name and run fields that every message
// logged through the context carries. Standard output is left to the run
// summary line, which automation parses.
package logger
