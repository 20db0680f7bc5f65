// Package config loads uvbrew settings with Viper.
//
// Values are layered, highest priority first: command-line flags,
// UVBREW_* environment variables, the TOML config file, then built-in
// defaults. The config file is the path given with --config, or
// config.toml in [ConfigDir] when present; a missing default file is not
// an error.
package config
