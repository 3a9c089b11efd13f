package lakeconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 30, cfg.Assembler.DaysBack)
	assert.Equal(t, 25, cfg.Assembler.RequiredHistory())
	assert.Equal(t, "000", cfg.Engine.PlaceholderMarket)
	assert.Equal(t, 24*time.Hour, cfg.Cache.AssetTTL)
}

func TestLoadRepositoryFile(t *testing.T) {
	path := "../../config/lake.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	defHash, err := Hash(Defaults())
	require.NoError(t, err)
	assert.Equal(t, defHash, hash, "shipped file mirrors the defaults")
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("assembler:\n  days_back: 60\ncache:\n  asset_ttl: 1h\n"))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Assembler.DaysBack)
	assert.Equal(t, 26, cfg.Assembler.RequiredRows)
	assert.Equal(t, time.Hour, cfg.Cache.AssetTTL)
	assert.Equal(t, Defaults().Schedule, cfg.Schedule)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("assembler:\n  day_back: 60\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"days_back", func(c *Config) { c.Assembler.DaysBack = 0 }, "assembler.days_back"},
		{"required_rows", func(c *Config) { c.Assembler.RequiredRows = 1 }, "assembler.required_rows"},
		{"placeholder", func(c *Config) { c.Engine.PlaceholderMarket = "" }, "engine.placeholder_market"},
		{"empty ingest", func(c *Config) { c.Schedule.Ingest = "" }, "schedule.ingest"},
		{"bad featured", func(c *Config) { c.Schedule.Featured = "0 30 21 * *" }, "schedule.featured"},
		{"timeout", func(c *Config) { c.Schedule.Timeout = 0 }, "schedule.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mod(cfg)

			var verr ValidationError
			err := Validate(cfg)
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	path := filepath.Join(t.TempDir(), "lake.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  placeholder_market: \"999\"\n"), 0o644))
	cfg, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "999", cfg.Engine.PlaceholderMarket)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHashChangesWithConfig(t *testing.T) {
	a, err := Hash(Defaults())
	require.NoError(t, err)

	cfg := Defaults()
	cfg.Assembler.DaysBack = 45
	b, err := Hash(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
