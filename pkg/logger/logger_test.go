package logger_test

import (
	"testing"

	"lintang/mapmatchx/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := logger.New("warn", false)
	require.Nil(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = logger.New("debug", true)
	require.Nil(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = logger.New("loud", false)
	assert.Error(t, err)
}
