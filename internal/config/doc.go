// Package config loads, normalizes, and validates the TOML configuration
// shared by the transforma CLI and daemon.
package config
