package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowoff/assistente/pkg/logger"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() { _ = logger.Close() })

	require.NoError(t, ConfigureLogging(ServerConfig{LogLevel: "debug", LogFormat: "console"}))
	require.NoError(t, ConfigureLogging(ServerConfig{LogDir: t.TempDir()}))
}

func TestLoggerOptionsFromDefaults(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	opts := cfg.Server.LoggerOptions()
	require.Equal(t, "info", opts.Level)
	require.Equal(t, "production", opts.Environment)
	require.Equal(t, "json", opts.Format)
	require.Equal(t, 5, opts.MaxSizeMB)
	require.Equal(t, 5, opts.MaxBackups)
	require.Empty(t, opts.Dir)
}
