// Package config loads, normalizes, and validates mptx configuration data.
//
// It supplies launcher defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and holds the default values for the tuning
// variables handed to the Python application. The Config type centralizes
// every knob the launcher, supervisor, and doctor need so the project root,
// interpreter, and entry scripts are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
