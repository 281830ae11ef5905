package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_DisabledByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Out: &buf})
	logger.Error().Msg("hidden")

	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
	assert.Empty(t, buf.String())
}

func TestNew_Verbose(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Verbose: true, NoColor: true, Out: &buf})
	logger.Debug().Str("path", "a.py").Msg("analyzed")

	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "analyzed")
	assert.Contains(t, buf.String(), "path=a.py")
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"warn", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"nonsense", zerolog.InfoLevel},
		{"disabled", zerolog.Disabled},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Equal(t, tt.want, New(Options{Level: tt.level, Out: &buf}).GetLevel())
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", NoColor: true, Out: &buf})
	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
