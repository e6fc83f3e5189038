// Package config loads, normalizes, and validates dvdmaker configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DVDMAKER_TOOLS_DIR environment
// override. The Config type centralizes the directories, tool resolution
// policy, disc defaults, and presets the CLI and pipeline need.
package config
