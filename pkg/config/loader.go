package config

import (
	"errors"
	"maps"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.Mutex
	cache   = map[reflect.Type]any{}

	dotenvOnce sync.Once
)

// Load fills v from the process environment, reading ./.env first if it
// exists. The first successful result for each type is cached and returned by
// later calls.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	key := reflect.TypeFor[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = *v
	return nil
}

// MustLoad is Load for values the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}

// Parse fills v from the given dotenv files overlaid by the process
// environment. Nothing is cached and the process environment is not modified,
// which makes it the loader of choice for CLI flags such as --env-file.
func Parse[T any](v *T, files ...string) error {
	if v == nil {
		return ErrNilPointer
	}

	vars := map[string]string{}
	if len(files) > 0 {
		fromFiles, err := godotenv.Read(files...)
		if err != nil {
			return errors.Join(ErrReadingFile, err)
		}
		maps.Copy(vars, fromFiles)
	}
	for _, kv := range os.Environ() {
		if k, val, ok := strings.Cut(kv, "="); ok {
			vars[k] = val
		}
	}

	if err := env.ParseWithOptions(v, env.Options{Environment: vars}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
