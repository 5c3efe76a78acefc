package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
[logging]
level = "debug"
format = "json"

[pool]
recycling = false
maxPooledBuffer = 8192

[stress]
appends = 2500
rounds = 3
shape = "balanced"

[render]
timeout = "2s"
operationLimit = 5000
`

const yamlConfig = `
logging:
  level: debug
  format: json
pool:
  recycling: false
  maxPooledBuffer: 8192
stress:
  appends: 2500
  rounds: 3
  shape: balanced
render:
  timeout: 2s
  operationLimit: 5000
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// loadIsolated loads path with environment overrides disabled.
func loadIsolated(t *testing.T, path string) *Config {
	t.Helper()
	c := New(WithFile(path), WithEnvPrefix(""))
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestDefaults(t *testing.T) {
	c := New(WithEnvPrefix(""))
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, LoggingConfig{Level: "info", Format: "text"}, c.Logging())
	assert.Equal(t, PoolConfig{Recycling: true, MaxPooledBuffer: 64 * 1024, DeepTeardown: 4096}, c.Pool())
	assert.Equal(t, StressConfig{Appends: 100_000, Rounds: 1, Shape: ShapeLeft}, c.Stress())
	assert.Equal(t, RenderConfig{
		Timeout:        5 * time.Second,
		OperationLimit: 1_000_000,
		MaxLength:      64 << 20,
		WatchDebounce:  100 * time.Millisecond,
	}, c.Render())
	assert.Empty(t, c.Path())
}

func TestLoad_TOMLAndYAMLAgree(t *testing.T) {
	fromTOML := loadIsolated(t, writeConfig(t, "picorope.toml", tomlConfig))
	fromYAML := loadIsolated(t, writeConfig(t, "picorope.yaml", yamlConfig))

	assert.Equal(t, fromTOML.Logging(), fromYAML.Logging())
	assert.Equal(t, fromTOML.Pool(), fromYAML.Pool())
	assert.Equal(t, fromTOML.Stress(), fromYAML.Stress())
	assert.Equal(t, fromTOML.Render(), fromYAML.Render())

	assert.Equal(t, StressConfig{Appends: 2500, Rounds: 3, Shape: ShapeBalanced}, fromYAML.Stress())
	assert.Equal(t, PoolConfig{Recycling: false, MaxPooledBuffer: 8192, DeepTeardown: 4096}, fromTOML.Pool())
	assert.Equal(t, 2*time.Second, fromTOML.Render().Timeout)
	assert.Equal(t, int64(5000), fromYAML.Render().OperationLimit)
}

func TestLoad_PackageHelper(t *testing.T) {
	path := writeConfig(t, "p.yml", "stress:\n  shape: right\n")
	c, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ShapeRight, c.Stress().Shape)
	assert.Equal(t, path, c.Path())
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		c := New(WithFile(filepath.Join(t.TempDir(), "nope.toml")), WithEnvPrefix(""))
		assert.ErrorIs(t, c.Load(ctx), ErrFileNotFound)
	})

	t.Run("unsupported format", func(t *testing.T) {
		c := New(WithFile(writeConfig(t, "p.json", "{}")), WithEnvPrefix(""))
		err := c.Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config format")
	})

	t.Run("parse error", func(t *testing.T) {
		c := New(WithFile(writeConfig(t, "p.toml", "[stress\n")), WithEnvPrefix(""))
		err := c.Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse error")
	})

	t.Run("invalid values", func(t *testing.T) {
		c := New(WithFile(writeConfig(t, "p.toml", `
[stress]
shape = "zigzag"
rounds = 0
[logging]
level = 3
`)), WithEnvPrefix(""))
		err := c.Load(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.ErrorIs(t, err, ErrTypeMismatch)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "stress.shape", verr.Path)

		// Accessors fall back to defaults for values of the wrong type.
		assert.Equal(t, "info", c.Logging().Level)
	})
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PICOROPE_STRESS_APPENDS", "77")
	t.Setenv("PICOROPE_LOG_LEVEL", "warn")
	t.Setenv("PICOROPE_RENDER_TIMEOUT", "750ms")

	c := New(WithFile(writeConfig(t, "p.toml", tomlConfig)))
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, 77, c.Stress().Appends)
	assert.Equal(t, 3, c.Stress().Rounds)
	assert.Equal(t, "warn", c.Logging().Level)
	assert.Equal(t, 750*time.Millisecond, c.Render().Timeout)
}

func TestSetOverridesEverything(t *testing.T) {
	t.Setenv("PICOROPE_STRESS_SHAPE", "right")

	c := New(WithFile(writeConfig(t, "p.toml", tomlConfig)))
	require.NoError(t, c.Load(context.Background()))
	require.Equal(t, ShapeRight, c.Stress().Shape)

	require.NoError(t, c.Set("stress.shape", ShapeLeft))
	require.NoError(t, c.Set("stress.appends", 10))
	assert.Equal(t, ShapeLeft, c.Stress().Shape)
	assert.Equal(t, 10, c.Stress().Appends)

	assert.ErrorIs(t, c.Set("", 1), ErrInvalidPath)
	assert.ErrorIs(t, c.Set("stress.shape.inner", 1), ErrInvalidPath)
}

func TestGetters(t *testing.T) {
	c := New(WithEnvPrefix(""))
	require.NoError(t, c.Set("x.s", "str"))
	require.NoError(t, c.Set("x.i", int64(4)))
	require.NoError(t, c.Set("x.f", 2.5))
	require.NoError(t, c.Set("x.d", 1500))

	s, err := c.GetString("x.s")
	require.NoError(t, err)
	assert.Equal(t, "str", s)

	i, err := c.GetInt("x.i")
	require.NoError(t, err)
	assert.Equal(t, 4, i)

	_, err = c.GetInt("x.f")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	d, err := c.GetDuration("x.d")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, err = c.GetDuration("x.s")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = c.GetBool("x.missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	_, err = c.GetString("x.i")
	var terr *TypeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "int", terr.Actual)
}

func TestMergedIsACopy(t *testing.T) {
	c := New(WithEnvPrefix(""))
	m := c.Merged()
	m["stress"].(map[string]any)["shape"] = "mutated"
	assert.Equal(t, ShapeLeft, c.Stress().Shape)
}

func TestGetPath(t *testing.T) {
	m := map[string]any{"a": map[string]any{"b": 1}, "c": 2}

	v, ok := getPath(m, "a.b")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = getPath(m, "c.d")
	assert.False(t, ok)
	_, ok = getPath(m, "")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, splitPath("a..b."))
}
