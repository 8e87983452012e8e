package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("workers", 0, "")
	fs.Int("producers", 0, "")
	fs.Bool("inject-poison", false, "")
	fs.String("log-level", "", "")
	return fs
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultProducers, cfg.Producers)
	assert.Equal(t, DefaultMessages, cfg.Messages)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.FileUsed)
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile),
		[]byte("workers: 20\nproducers: 3\nmessages: 7\nlog_format: json\n"), 0o600))
	t.Setenv("COORD_PRODUCERS", "5")
	t.Setenv("COORD_INJECT_POISON", "true")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--workers=40"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Workers, "flag beats file")
	assert.Equal(t, 5, cfg.Producers, "env beats file")
	assert.Equal(t, 7, cfg.Messages, "file beats default")
	assert.True(t, cfg.InjectPoison)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DefaultFile, cfg.FileUsed)
}

func TestUnchangedFlagsDoNotOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COORD_WORKERS", "9")
	fs := newFlags()
	require.NoError(t, fs.Parse(nil))
	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
}

func TestExplicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("nope.yaml", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COORD_WORKERS", "-1")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "workers")

	cfg := &Config{LogLevel: "loud", LogFormat: "text"}
	assert.ErrorContains(t, cfg.Validate(), "log_level")
	cfg = &Config{LogLevel: "debug", LogFormat: "xml"}
	assert.ErrorContains(t, cfg.Validate(), "log_format")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	log := cfg.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	ctx := WithLogger(context.Background(), log)
	assert.Same(t, log, GetLogger(ctx))
	assert.NotNil(t, GetLogger(context.Background()))
}
