// Package config loads, normalizes, and validates tagwarden configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the TAGWARDEN_TAGS_DIR environment
// fallback. The Config type centralizes every knob the CLI needs: the Logic
// Tags directory, backup and state locations, the name-matching vocabularies,
// and the external assistant tools used to draft category mappings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
