// Package config handles configuration loading, parsing, and validation
// for the application, sourcing settings from environment variables and an
// optional config file.
package config
