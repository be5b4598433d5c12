package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core)).With(zap.String("product_id", "p-1"))

	log.Info("wizard opened", zap.String("mode", "add"))

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "wizard opened", entries[0].Message)
	assert.Equal(t, "p-1", entries[0].ContextMap()["product_id"])
	assert.Equal(t, "add", entries[0].ContextMap()["mode"])
}

func TestNewZapLoggerFallsBackOnBadLevel(t *testing.T) {
	log := NewZapLogger(&ZapLoggerConfig{Level: "loud", Encoding: "console", DisableStacktrace: true})
	assert.NotNil(t, log)
	log.Debug("dropped at info level")
}
