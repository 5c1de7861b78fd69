// Package config defines the settings of a sync run and provides helpers to
// load them from YAML, override them from the environment, validate and save them.
//
// Every blank setting falls back to the FreeShow AUR package defaults.
package config
