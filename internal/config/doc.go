// Package config loads, normalizes, and validates easel's TOML
// configuration. Defaults live in Default; Load layers a config file over
// them, expands paths, and pulls secrets from the environment when they are
// not set in the file.
package config
