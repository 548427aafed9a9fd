// Package config loads and validates the per-project hermes.toml file.
//
// Configuration is read once at process start and handed down explicitly to
// every component that needs it; there is no process-wide configuration
// state. Secrets (the deposition token) come from the environment so they
// never land in hermes.toml.
package config
