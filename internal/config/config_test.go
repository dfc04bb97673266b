package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 3, cfg.Pipeline.FrameStride)
	assert.Equal(t, []string{".mov"}, cfg.Pipeline.Extensions)
	assert.Equal(t, 50, cfg.Search.MaxVariations)
	assert.Equal(t, 512, cfg.Search.Ceiling)
	assert.Equal(t, time.Second, cfg.Search.Pacing)
	assert.Equal(t, "ranked", cfg.Search.VariationMode)
	assert.Equal(t, "CA", cfg.Oracle.Jurisdiction)
	assert.Equal(t, 5, cfg.Oracle.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Oracle.RetryDelay)
	assert.Empty(t, cfg.MQTT.Broker)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLATE_ORACLE_JURISDICTION", "nv")
	t.Setenv("PLATE_PIPELINE_WORKERS", "8")
	t.Setenv("PLATE_SEARCH_PACING", "250ms")
	t.Setenv("PLATE_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "NV", cfg.Oracle.Jurisdiction)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.Pacing)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
pipeline:
  input_dir: /data/in
  extensions: [mov, ".MP4"]
search:
  variation_mode: Sweep
  max_variations: 20
mqtt:
  broker: tcp://localhost:1883
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/in", cfg.Pipeline.InputDir)
	assert.Equal(t, []string{".mov", ".MP4"}, cfg.Pipeline.Extensions)
	assert.Equal(t, "sweep", cfg.Search.VariationMode)
	assert.Equal(t, 20, cfg.Search.MaxVariations)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"workers":      func(c *Config) { c.Pipeline.Workers = 0 },
		"stride":       func(c *Config) { c.Pipeline.FrameStride = -1 },
		"ceiling":      func(c *Config) { c.Search.Ceiling = 10 },
		"mode":         func(c *Config) { c.Search.VariationMode = "random" },
		"jurisdiction": func(c *Config) { c.Oracle.Jurisdiction = " " },
		"engine":       func(c *Config) { c.OCR.Engine = "easyocr" },
		"qos":          func(c *Config) { c.MQTT.QoS = 3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			c.Pipeline.Extensions = append([]string(nil), base.Pipeline.Extensions...)
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
