// Package config loads typed configuration from environment variables.
//
// Structs declare their variables with caarlos0/env tags:
//
//	type Config struct {
//		Addr     string        `env:"HTTP_ADDR" envDefault:":8080"`
//		Upstream string        `env:"UPSTREAM_URL,required"`
//		Timeout  time.Duration `env:"TRACK_TIMEOUT" envDefault:"5s"`
//	}
//
// Load reads ./.env once per process via godotenv and caches the parsed value
// per type. Parse skips the cache and takes explicit dotenv files, with the
// process environment taking precedence over file values.
package config
