// Package config loads, normalizes, and validates sopgen configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SOPGEN_LLM_API_KEY and GROQ_API_KEY. The Config type centralizes every knob
// the CLI and the HTTP surface need, so sampling cadence, model parameters
// and output locations are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
