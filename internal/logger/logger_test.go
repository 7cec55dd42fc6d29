package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLevel(t *testing.T) {
	quiet := New(false)
	assert.False(t, quiet.Core().Enabled(zap.DebugLevel))
	assert.True(t, quiet.Core().Enabled(zap.InfoLevel))

	verbose := New(true)
	assert.True(t, verbose.Core().Enabled(zap.DebugLevel))
}
