package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attribution/pkg/config"
)

type cachedConfig struct {
	Addr string `env:"CONFIG_TEST_CACHED_ADDR" envDefault:":8080"`
}

type requiredConfig struct {
	Upstream string `env:"CONFIG_TEST_REQUIRED_UPSTREAM,required"`
}

type fileConfig struct {
	Upstream string        `env:"CONFIG_TEST_FILE_UPSTREAM"`
	Timeout  time.Duration `env:"CONFIG_TEST_FILE_TIMEOUT" envDefault:"5s"`
	Domains  []string      `env:"CONFIG_TEST_FILE_DOMAINS" envSeparator:","`
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("CONFIG_TEST_CACHED_ADDR", ":9090")

	var first cachedConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, ":9090", first.Addr)

	t.Setenv("CONFIG_TEST_CACHED_ADDR", ":7070")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, ":9090", second.Addr)
}

func TestLoad_Required(t *testing.T) {
	var cfg requiredConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParsingConfig)

	assert.Panics(t, func() {
		var again requiredConfig
		config.MustLoad(&again)
	})
}

func TestLoad_NilPointer(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, config.Load[cachedConfig](nil), config.ErrNilPointer)
	require.ErrorIs(t, config.Parse[cachedConfig](nil), config.ErrNilPointer)
}

func TestParse_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attribution.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"CONFIG_TEST_FILE_UPSTREAM=http://from-file:3000\n"+
			"CONFIG_TEST_FILE_TIMEOUT=2s\n"+
			"CONFIG_TEST_FILE_DOMAINS=a.com,b.com\n",
	), 0o600))

	t.Setenv("CONFIG_TEST_FILE_TIMEOUT", "750ms")

	var cfg fileConfig
	require.NoError(t, config.Parse(&cfg, path))

	assert.Equal(t, "http://from-file:3000", cfg.Upstream)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
	assert.Equal(t, []string{"a.com", "b.com"}, cfg.Domains)

	_, set := os.LookupEnv("CONFIG_TEST_FILE_UPSTREAM")
	assert.False(t, set)
}

func TestParse_MissingFile(t *testing.T) {
	t.Parallel()

	var cfg fileConfig
	err := config.Parse(&cfg, filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorIs(t, err, config.ErrReadingFile)
}
