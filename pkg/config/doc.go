// Package config loads billing client configuration from environment
// variables (GLINTLY_* prefix) with validation and sensible defaults.
package config
