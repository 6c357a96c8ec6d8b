// Package config loads, normalizes, and validates Station Manager
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STATION_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: remote API credentials, queue database location, sync retry and
// grace-window tuning, and connectivity probe settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
