package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/config"
)

func readLogFile(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 -- test file path
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected config.LogLevel
	}{
		{"off lowercase", "off", config.LogLevelOff},
		{"off uppercase", "OFF", config.LogLevelOff},
		{"none", "none", config.LogLevelOff},
		{"error", "error", config.LogLevelError},
		{"debug uppercase", "DEBUG", config.LogLevelDebug},
		{"with whitespace", "  debug  ", config.LogLevelDebug},
		{"invalid returns error", "invalid", config.LogLevelError},
		{"empty returns error", "", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "error", config.LogLevelError.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func TestNewLogger_EmptyPath(t *testing.T) {
	t.Parallel()
	logger, err := config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	// Should not panic when logging with no file
	logger.Debug("test message")
	logger.Error("test error")
}

func TestNewLogger_ValidPath(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "nested", "roi.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Debug("debug %d", 42)
	logger.Error("error message")

	content := readLogFile(t, logPath)
	assert.Contains(t, content, "[DEBUG] debug 42")
	assert.Contains(t, content, "[ERROR] error message")
	assert.Equal(t, logPath, logger.Path())
}

func TestNewLogger_InvalidPath(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := config.NewLogger(config.LogLevelDebug, filepath.Join(file, "roi.log"))
	require.Error(t, err)
}

func TestNewLoggerFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("verbose forces debug", func(t *testing.T) {
		t.Parallel()
		cfg := config.Defaults()
		cfg.Logging.Level = "error"
		cfg.Logging.File = filepath.Join(t.TempDir(), "roi.log")

		logger, err := config.NewLoggerFromConfig(cfg, true)
		require.NoError(t, err)
		defer func() { _ = logger.Close() }()
		assert.Equal(t, config.LogLevelDebug, logger.Level())
	})

	t.Run("unopenable file falls back to null logger", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		cfg := config.Defaults()
		cfg.Logging.File = filepath.Join(file, "roi.log")
		logger, err := config.NewLoggerFromConfig(cfg, false)
		require.Error(t, err)
		require.NotNil(t, logger)
		assert.Equal(t, config.LogLevelOff, logger.Level())
	})
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "roi.log")

	logger, err := config.NewLogger(config.LogLevelError, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Debug("hidden")
	logger.Error("shown")
	logger.SetLevel(config.LogLevelOff)
	logger.Error("also hidden")

	content := readLogFile(t, logPath)
	assert.NotContains(t, content, "hidden")
	assert.Contains(t, content, "shown")
}

func TestLogger_Named(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "roi.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	eth := logger.Named("eth")
	eth.Debug("block %d", 7)
	logger.SetLevel(config.LogLevelError)
	eth.Debug("suppressed by shared level")

	content := readLogFile(t, logPath)
	assert.Contains(t, content, "[DEBUG] eth: block 7")
	assert.NotContains(t, content, "suppressed")
}

func TestLogger_Mirror(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "roi.log")

	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	var mirrored strings.Builder
	logger.Mirror(&mirrored)
	logger.Named("cache").Debug("hit %d", 42)
	logger.Mirror(nil)
	logger.Debug("file only")

	assert.Contains(t, mirrored.String(), "[DEBUG] cache: hit 42\n")
	assert.NotContains(t, mirrored.String(), "file only")
	assert.Contains(t, readLogFile(t, logPath), "file only")
}

func TestLogger_MirrorWithoutFile(t *testing.T) {
	t.Parallel()

	logger, err := config.NewLogger(config.LogLevelError, "")
	require.NoError(t, err)

	var mirrored strings.Builder
	logger.Mirror(&mirrored)
	logger.Debug("below level")
	logger.Error("rpc down")

	assert.NotContains(t, mirrored.String(), "below level")
	assert.Contains(t, mirrored.String(), "[ERROR] rpc down")
}

func TestLogger_CloseTwice(t *testing.T) {
	t.Parallel()
	logger, err := config.NewLogger(config.LogLevelDebug, filepath.Join(t.TempDir(), "roi.log"))
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
	logger.Error("after close is dropped")
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	assert.Equal(t, config.LogLevelOff, logger.Level())
	logger.Debug("nothing")
	require.NoError(t, logger.Close())
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "roi.log")
	logger, err := config.NewLogger(config.LogLevelDebug, logPath)
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Named("worker").Debug("message %d", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(readLogFile(t, logPath)), "\n")
	assert.Len(t, lines, 10)
}
