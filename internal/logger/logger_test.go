package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", false)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Str("file", "a.mov").Msg("shown")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "a.mov", line["file"])
	assert.Contains(t, line, "time")
}

func TestNewWithWriterUnknownLevel(t *testing.T) {
	for _, lvl := range []string{"", "loud"} {
		log := NewWithWriter(&bytes.Buffer{}, lvl, false)
		assert.Equal(t, zerolog.InfoLevel, log.GetLevel(), lvl)
	}
}

func TestNewWithWriterPretty(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", true)
	log.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}
