// Package config loads, normalizes, and validates pixpress configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI needs: work/log directories, the concurrency bound, codec quality
// settings, optimizer binary overrides, and history retention.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
