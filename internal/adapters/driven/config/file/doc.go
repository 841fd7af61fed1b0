// Package file provides a TOML file-backed implementation of the config
// store. Pipeline settings and service endpoints live in a single
// config.toml under the aska data directory; anything unset falls back
// to defaults.
package file
