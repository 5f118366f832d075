package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ippclub/gem-poller/internal/config"
	"github.com/ippclub/gem-poller/internal/logger"
)

func Test_ParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logger.ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, logger.ParseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, logger.ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, logger.ParseLevel("verbose"))
}

func Test_InitLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gem-poller.log")
	log, err := logger.InitLogger(config.Log{Level: "info", Filename: path, MaxSize: 1})
	require.NoError(t, err)

	log.Info("revision found")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"revision found"`)
}
