package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewJSONWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: zerolog.InfoLevel, Format: "json", Output: &buf})

	log.Debug().Msg("hidden")
	log.Info().Str("kind", "login").Msg("spawned")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"kind":"login"`)
	assert.Contains(t, buf.String(), `"message":"spawned"`)
}

func TestWithComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(Config{Level: zerolog.InfoLevel, Format: "json", Output: &buf}))
	ctx = WithComponent(ctx, "supervisor")

	FromContext(ctx).Info().Msg("ready")
	assert.Contains(t, buf.String(), `"component":"supervisor"`)
}
