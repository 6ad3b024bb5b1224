// Package config loads, normalizes, and validates the TOML configuration for
// the crosspost daemon and CLI. Path fields are tilde-expanded and made
// absolute during Load; zero-valued timing and limit fields fall back to
// repository defaults.
package config
