// Package config loads application configuration from environment variables.
//
// Values come from the process environment, optionally seeded from .env files
// through github.com/joho/godotenv, and are parsed into tagged structs by
// github.com/caarlos0/env/v11. Parsed structs are then checked against their
// `validate` tags with github.com/go-playground/validator/v10, so a bad
// heartbeat interval or an unknown store backend stops the process at boot.
//
// Each configuration type is parsed once and cached for the lifetime of the
// process. Tests can call ResetCache or ForceReload after changing variables.
//
//	type Config struct {
//		Store string `env:"MESSAGE_STORE" envDefault:"memory" validate:"oneof=memory postgres redis"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
