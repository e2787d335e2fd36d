package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, "warn"))

	log.Info().Msg("hidden")
	log.Warn().Int("records", 3).Msg("fixture-loaded")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fixture-loaded", line["message"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "mongo-init", line["app"])
	assert.EqualValues(t, 3, line["records"])
}

func TestSetupWriterDefaultsAndErrors(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	require.NoError(t, SetupWriter(&buf, ""))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	assert.Error(t, SetupWriter(&buf, "loud"))
}
